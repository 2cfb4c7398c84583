package http

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/graphql-go/graphql"

	"github.com/samirrijal/staymap/internal/core/domain"
	"github.com/samirrijal/staymap/internal/core/markers"
	"github.com/samirrijal/staymap/internal/core/usecases"
)

// recordField resolves one key of a marker record.
func recordField(key string) graphql.FieldResolveFn {
	return func(p graphql.ResolveParams) (interface{}, error) {
		if r, ok := p.Source.(markers.Record); ok {
			return r[key], nil
		}
		return nil, nil
	}
}

func centerArg(args map[string]interface{}) *domain.GeoPoint {
	lat, okLat := args["centerLat"].(float64)
	lng, okLng := args["centerLng"].(float64)
	if !okLat || !okLng {
		return nil
	}
	return &domain.GeoPoint{Lat: lat, Lng: lng}
}

// buildSchema creates the GraphQL schema wired to our services.
func buildSchema(deps *Dependencies) (graphql.Schema, error) {
	geoPointType := graphql.NewObject(graphql.ObjectConfig{
		Name: "GeoPoint",
		Fields: graphql.Fields{
			"lat": &graphql.Field{Type: graphql.Float},
			"lng": &graphql.Field{Type: graphql.Float},
		},
	})

	propertyType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Property",
		Fields: graphql.Fields{
			"id":       &graphql.Field{Type: graphql.String},
			"slug":     &graphql.Field{Type: graphql.String},
			"title":    &graphql.Field{Type: graphql.String},
			"price":    &graphql.Field{Type: graphql.Float},
			"currency": &graphql.Field{Type: graphql.String},
			"bedrooms": &graphql.Field{Type: graphql.Int},
			"guests":   &graphql.Field{Type: graphql.Int},
			"city":     &graphql.Field{Type: graphql.String},
		},
	})

	markerType := graphql.NewObject(graphql.ObjectConfig{
		Name:        "Marker",
		Description: "A displaced map marker; lat/lng are null when the property has no position",
		Fields: graphql.Fields{
			"id":      &graphql.Field{Type: graphql.String, Resolve: recordField(markers.DefaultIDKey)},
			"lat":     &graphql.Field{Type: graphql.Float, Resolve: recordField(markers.DefaultLatKey)},
			"lng":     &graphql.Field{Type: graphql.Float, Resolve: recordField(markers.DefaultLngKey)},
			"price":   &graphql.Field{Type: graphql.Float, Resolve: recordField("price")},
			"title":   &graphql.Field{Type: graphql.String, Resolve: recordField("title")},
			"hovered": &graphql.Field{Type: graphql.Boolean, Resolve: recordField("hovered")},
		},
	})

	statsType := graphql.NewObject(graphql.ObjectConfig{
		Name: "MarkerStats",
		Fields: graphql.Fields{
			"displaced":     &graphql.Field{Type: graphql.Int},
			"passthrough":   &graphql.Field{Type: graphql.Int},
			"fallbacks":     &graphql.Field{Type: graphql.Int},
			"spread_groups": &graphql.Field{Type: graphql.Int},
		},
	})

	markerSetType := graphql.NewObject(graphql.ObjectConfig{
		Name: "MarkerSet",
		Fields: graphql.Fields{
			"center": &graphql.Field{Type: geoPointType},
			"markers": &graphql.Field{
				Type: graphql.NewList(markerType),
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					set, ok := p.Source.(*usecases.MarkerSet)
					if !ok {
						return nil, nil
					}
					return set.Markers, nil
				},
			},
			"stats": &graphql.Field{Type: statsType},
		},
	})

	centerArgs := func(extra graphql.FieldConfigArgument) graphql.FieldConfigArgument {
		extra["centerLat"] = &graphql.ArgumentConfig{Type: graphql.Float}
		extra["centerLng"] = &graphql.ArgumentConfig{Type: graphql.Float}
		return extra
	}

	queryType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Query",
		Fields: graphql.Fields{
			"properties": &graphql.Field{
				Type:        graphql.NewList(propertyType),
				Description: "List active properties",
				Args: graphql.FieldConfigArgument{
					"city":   &graphql.ArgumentConfig{Type: graphql.String, DefaultValue: ""},
					"limit":  &graphql.ArgumentConfig{Type: graphql.Int, DefaultValue: 100},
					"offset": &graphql.ArgumentConfig{Type: graphql.Int, DefaultValue: 0},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					props, err := deps.Properties.List(p.Context, domain.PropertyFilter{
						City:   p.Args["city"].(string),
						Limit:  p.Args["limit"].(int),
						Offset: p.Args["offset"].(int),
					})
					if err != nil {
						return nil, err
					}
					return publicProperties(props), nil
				},
			},
			"property": &graphql.Field{
				Type:        propertyType,
				Description: "Get a property by ID",
				Args: graphql.FieldConfigArgument{
					"id": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					prop, err := deps.Properties.GetByID(p.Context, p.Args["id"].(string))
					if errors.Is(err, domain.ErrNotFound) {
						return nil, nil
					}
					if err != nil {
						return nil, err
					}
					public := *prop
					public.Geolocation = nil
					return public, nil
				},
			},
			"mapMarkers": &graphql.Field{
				Type:        markerSetType,
				Description: "Displaced and spread markers for the search map",
				Args: centerArgs(graphql.FieldConfigArgument{
					"city":  &graphql.ArgumentConfig{Type: graphql.String, DefaultValue: ""},
					"limit": &graphql.ArgumentConfig{Type: graphql.Int, DefaultValue: 100},
				}),
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return deps.Maps.SearchMarkers(p.Context, domain.PropertyFilter{
						City:  p.Args["city"].(string),
						Limit: p.Args["limit"].(int),
					}, centerArg(p.Args))
				},
			},
			"wishlistMarkers": &graphql.Field{
				Type:        markerSetType,
				Description: "Displaced markers for a wishlist",
				Args: centerArgs(graphql.FieldConfigArgument{
					"id": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
				}),
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return deps.Maps.WishlistMarkers(p.Context, p.Args["id"].(string), centerArg(p.Args))
				},
			},
		},
	})

	return graphql.NewSchema(graphql.SchemaConfig{
		Query: queryType,
	})
}

// GraphQLHandler serves the GraphQL endpoint.
func GraphQLHandler(deps *Dependencies) fiber.Handler {
	schema, err := buildSchema(deps)
	if err != nil {
		// This would be a programming error in the schema definition
		panic("graphql schema build: " + err.Error())
	}

	type gqlRequest struct {
		Query         string                 `json:"query"`
		OperationName string                 `json:"operationName"`
		Variables     map[string]interface{} `json:"variables"`
	}

	return func(c *fiber.Ctx) error {
		var req gqlRequest
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid request body")
		}

		result := graphql.Do(graphql.Params{
			Schema:         schema,
			RequestString:  req.Query,
			VariableValues: req.Variables,
			OperationName:  req.OperationName,
			Context:        c.UserContext(),
		})

		return c.JSON(result)
	}
}
