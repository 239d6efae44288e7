// Package graphql exposes the engine through a GraphQL schema, mirroring the
// REST surface.
package graphql

import (
	"fmt"
	"strings"

	"github.com/graphql-go/graphql"

	"github.com/merxlabs/merx/pkg/catalog"
	"github.com/merxlabs/merx/pkg/engine"
)

// Schema creates the GraphQL schema over the engine.
func Schema(eng *engine.Engine) (graphql.Schema, error) {
	searchResultType := graphql.NewObject(graphql.ObjectConfig{
		Name:        "SearchResult",
		Description: "A ranked product hit",
		Fields: graphql.Fields{
			"productId": &graphql.Field{
				Type: graphql.NewNonNull(graphql.String),
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return p.Source.(engine.SearchResult).ProductID, nil
				},
			},
			"title": &graphql.Field{
				Type: graphql.NewNonNull(graphql.String),
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return p.Source.(engine.SearchResult).Title, nil
				},
			},
			"score": &graphql.Field{
				Type: graphql.NewNonNull(graphql.Float),
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return p.Source.(engine.SearchResult).Score, nil
				},
			},
			"priceCents": &graphql.Field{
				Type: graphql.NewNonNull(graphql.Int),
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return int(p.Source.(engine.SearchResult).PriceCents), nil
				},
			},
			"currency": &graphql.Field{
				Type: graphql.String,
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return p.Source.(engine.SearchResult).Currency, nil
				},
			},
			"stock": &graphql.Field{
				Type: graphql.NewNonNull(graphql.Int),
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return p.Source.(engine.SearchResult).Stock, nil
				},
			},
		},
	})

	productType := graphql.NewObject(graphql.ObjectConfig{
		Name:        "Product",
		Description: "A catalog product record",
		Fields: graphql.Fields{
			"productId": &graphql.Field{
				Type: graphql.NewNonNull(graphql.String),
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return p.Source.(*catalog.Product).ProductID, nil
				},
			},
			"title": &graphql.Field{
				Type: graphql.NewNonNull(graphql.String),
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return p.Source.(*catalog.Product).Title, nil
				},
			},
			"description": &graphql.Field{
				Type: graphql.String,
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return p.Source.(*catalog.Product).Description, nil
				},
			},
			"categories": &graphql.Field{
				Type: graphql.NewList(graphql.String),
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return p.Source.(*catalog.Product).Categories, nil
				},
			},
			"priceCents": &graphql.Field{
				Type: graphql.NewNonNull(graphql.Int),
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return int(p.Source.(*catalog.Product).PriceCents), nil
				},
			},
			"currency": &graphql.Field{
				Type: graphql.String,
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return p.Source.(*catalog.Product).Currency, nil
				},
			},
			"stock": &graphql.Field{
				Type: graphql.NewNonNull(graphql.Int),
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return p.Source.(*catalog.Product).Stock, nil
				},
			},
		},
	})

	recommendationType := graphql.NewObject(graphql.ObjectConfig{
		Name:        "Recommendation",
		Description: "Related product ids and why they were chosen",
		Fields: graphql.Fields{
			"productIds": &graphql.Field{Type: graphql.NewList(graphql.NewNonNull(graphql.String))},
			"reason":     &graphql.Field{Type: graphql.String},
		},
	})

	queryCountType := graphql.NewObject(graphql.ObjectConfig{
		Name: "QueryCount",
		Fields: graphql.Fields{
			"query": &graphql.Field{
				Type: graphql.NewNonNull(graphql.String),
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return p.Source.(engine.QueryCount).Query, nil
				},
			},
			"count": &graphql.Field{
				Type: graphql.NewNonNull(graphql.Int),
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return int(p.Source.(engine.QueryCount).Count), nil
				},
			},
		},
	})

	analyticsType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Analytics",
		Fields: graphql.Fields{
			"topSearches": &graphql.Field{
				Type: graphql.NewList(queryCountType),
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return p.Source.(engine.AnalyticsSnapshot).TopSearches, nil
				},
			},
			"totalSearches": &graphql.Field{
				Type: graphql.NewNonNull(graphql.Int),
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return int(p.Source.(engine.AnalyticsSnapshot).TotalSearches), nil
				},
			},
			"uniqueQueries": &graphql.Field{
				Type: graphql.NewNonNull(graphql.Int),
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return p.Source.(engine.AnalyticsSnapshot).UniqueQueries, nil
				},
			},
			"indexedProducts": &graphql.Field{
				Type: graphql.NewNonNull(graphql.Int),
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return p.Source.(engine.AnalyticsSnapshot).IndexedProducts, nil
				},
			},
		},
	})

	queryType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Query",
		Fields: graphql.Fields{
			"search": &graphql.Field{
				Type:        graphql.NewList(searchResultType),
				Description: "Search products by free text with optional filters",
				Args: graphql.FieldConfigArgument{
					"q":        &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
					"limit":    &graphql.ArgumentConfig{Type: graphql.Int, DefaultValue: 20},
					"category": &graphql.ArgumentConfig{Type: graphql.String},
					"minPrice": &graphql.ArgumentConfig{Type: graphql.Int},
					"maxPrice": &graphql.ArgumentConfig{Type: graphql.Int},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					q := p.Args["q"].(string)
					limit := p.Args["limit"].(int)
					if limit < 1 || limit > 100 {
						return nil, fmt.Errorf("limit must be between 1 and 100")
					}

					filters := engine.SearchFilters{}
					if c, ok := p.Args["category"].(string); ok {
						filters.Category = c
					}
					if v, ok := p.Args["minPrice"].(int); ok {
						min := int64(v)
						filters.MinPrice = &min
					}
					if v, ok := p.Args["maxPrice"].(int); ok {
						max := int64(v)
						filters.MaxPrice = &max
					}
					return eng.Search(q, limit, filters), nil
				},
			},
			"suggest": &graphql.Field{
				Type:        graphql.NewList(graphql.NewNonNull(graphql.String)),
				Description: "Autocomplete suggestions for a partial query",
				Args: graphql.FieldConfigArgument{
					"q":     &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
					"limit": &graphql.ArgumentConfig{Type: graphql.Int, DefaultValue: 10},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					q := strings.TrimSpace(p.Args["q"].(string))
					limit := p.Args["limit"].(int)
					if limit < 1 || limit > 20 {
						return nil, fmt.Errorf("limit must be between 1 and 20")
					}
					if len(q) < 2 {
						return []string{}, nil
					}
					return eng.Autocomplete(q, limit), nil
				},
			},
			"recommendations": &graphql.Field{
				Type:        recommendationType,
				Description: "Related products for a product id",
				Args: graphql.FieldConfigArgument{
					"productId": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
					"limit":     &graphql.ArgumentConfig{Type: graphql.Int, DefaultValue: 5},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					id := p.Args["productId"].(string)
					limit := p.Args["limit"].(int)
					if limit < 1 || limit > 20 {
						return nil, fmt.Errorf("limit must be between 1 and 20")
					}
					recs, reason, err := eng.Recommend(id, limit)
					if err != nil {
						return nil, err
					}
					if recs == nil {
						recs = []string{}
					}
					return map[string]interface{}{
						"productIds": recs,
						"reason":     reason,
					}, nil
				},
			},
			"product": &graphql.Field{
				Type:        productType,
				Description: "Fetch a product record by id",
				Args: graphql.FieldConfigArgument{
					"productId": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return eng.GetProduct(p.Args["productId"].(string))
				},
			},
			"analytics": &graphql.Field{
				Type:        analyticsType,
				Description: "Search analytics snapshot",
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return eng.Analytics(), nil
				},
			},
		},
	})

	mutationType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Mutation",
		Fields: graphql.Fields{
			"indexProduct": &graphql.Field{
				Type:        graphql.NewNonNull(graphql.String),
				Description: "Index a product; returns its id",
				Args: graphql.FieldConfigArgument{
					"productId":   &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
					"title":       &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
					"description": &graphql.ArgumentConfig{Type: graphql.String, DefaultValue: ""},
					"categories":  &graphql.ArgumentConfig{Type: graphql.NewList(graphql.String)},
					"priceCents":  &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Int)},
					"currency":    &graphql.ArgumentConfig{Type: graphql.String, DefaultValue: "USD"},
					"stock":       &graphql.ArgumentConfig{Type: graphql.Int, DefaultValue: 0},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					product := &catalog.Product{
						ProductID:   p.Args["productId"].(string),
						Title:       p.Args["title"].(string),
						Description: p.Args["description"].(string),
						PriceCents:  int64(p.Args["priceCents"].(int)),
						Currency:    p.Args["currency"].(string),
						Stock:       p.Args["stock"].(int),
					}
					if raw, ok := p.Args["categories"].([]interface{}); ok {
						for _, c := range raw {
							if s, ok := c.(string); ok {
								product.Categories = append(product.Categories, s)
							}
						}
					}
					if err := eng.IndexProduct(product); err != nil {
						return nil, err
					}
					return product.ProductID, nil
				},
			},
			"recordView": &graphql.Field{
				Type:        graphql.NewNonNull(graphql.Boolean),
				Description: "Record co-viewed products for a session",
				Args: graphql.FieldConfigArgument{
					"productId":       &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
					"sessionProducts": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.NewList(graphql.NewNonNull(graphql.String)))},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					id := p.Args["productId"].(string)
					var session []string
					if raw, ok := p.Args["sessionProducts"].([]interface{}); ok {
						for _, s := range raw {
							if str, ok := s.(string); ok {
								session = append(session, str)
							}
						}
					}
					eng.RecordView(id, session)
					return true, nil
				},
			},
		},
	})

	return graphql.NewSchema(graphql.SchemaConfig{
		Query:    queryType,
		Mutation: mutationType,
	})
}
