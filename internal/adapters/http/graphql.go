package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/graphql-go/graphql"

	"github.com/samirrijal/routetiles/internal/core/domain"
)

// buildSchema creates the GraphQL schema wired to our services. Object fields
// resolve through the json tags of the domain types.
func buildSchema(deps *Dependencies) (graphql.Schema, error) {
	geoPointType := graphql.NewObject(graphql.ObjectConfig{
		Name: "GeoPoint",
		Fields: graphql.Fields{
			"lat": &graphql.Field{Type: graphql.Float},
			"lon": &graphql.Field{Type: graphql.Float},
		},
	})

	boundsType := graphql.NewObject(graphql.ObjectConfig{
		Name: "BoundingBox",
		Fields: graphql.Fields{
			"south_west": &graphql.Field{Type: geoPointType},
			"north_east": &graphql.Field{Type: geoPointType},
			"outline": &graphql.Field{
				Type:        graphql.NewList(geoPointType),
				Description: "Corners as a closed ring starting at the north-west corner",
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					if b, ok := p.Source.(domain.BoundingBox); ok {
						return b.Outline(), nil
					}
					return nil, nil
				},
			},
		},
	})

	waypointType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Waypoint",
		Fields: graphql.Fields{
			"index": &graphql.Field{Type: graphql.Int},
			"point": &graphql.Field{Type: geoPointType},
		},
	})

	settingsType := graphql.NewObject(graphql.ObjectConfig{
		Name: "PlanSettings",
		Fields: graphql.Fields{
			"min_distance_meters": &graphql.Field{Type: graphql.Float},
			"offset_meters":       &graphql.Field{Type: graphql.Float},
			"min_zoom":            &graphql.Field{Type: graphql.Int},
			"max_zoom":            &graphql.Field{Type: graphql.Int},
		},
	})

	// Tile counts can pass 2^31, which graphql.Int refuses to serialize.
	regionType := graphql.NewObject(graphql.ObjectConfig{
		Name: "PrefetchRegion",
		Fields: graphql.Fields{
			"index":      &graphql.Field{Type: graphql.Int},
			"waypoint":   &graphql.Field{Type: waypointType},
			"bounds":     &graphql.Field{Type: boundsType},
			"min_zoom":   &graphql.Field{Type: graphql.Int},
			"max_zoom":   &graphql.Field{Type: graphql.Int},
			"tile_count": &graphql.Field{Type: graphql.Float},
			"degraded":   &graphql.Field{Type: graphql.Boolean},
		},
	})

	planType := graphql.NewObject(graphql.ObjectConfig{
		Name: "PrefetchPlan",
		Fields: graphql.Fields{
			"id":            &graphql.Field{Type: graphql.String},
			"name":          &graphql.Field{Type: graphql.String},
			"settings":      &graphql.Field{Type: settingsType},
			"point_count":   &graphql.Field{Type: graphql.Int},
			"length_meters": &graphql.Field{Type: graphql.Float},
			"regions":       &graphql.Field{Type: graphql.NewList(regionType)},
			"tile_count":    &graphql.Field{Type: graphql.Float},
			"skipped":       &graphql.Field{Type: graphql.Int},
			"dispatched_at": &graphql.Field{Type: graphql.DateTime},
			"created_at":    &graphql.Field{Type: graphql.DateTime},
		},
	})

	planPageType := graphql.NewObject(graphql.ObjectConfig{
		Name: "PlanPage",
		Fields: graphql.Fields{
			"total": &graphql.Field{Type: graphql.Int},
			"plans": &graphql.Field{Type: graphql.NewList(planType)},
		},
	})

	progressType := graphql.NewObject(graphql.ObjectConfig{
		Name: "PlanProgress",
		Fields: graphql.Fields{
			"plan_id":   &graphql.Field{Type: graphql.String},
			"regions":   &graphql.Field{Type: graphql.Int},
			"reported":  &graphql.Field{Type: graphql.Int},
			"completed": &graphql.Field{Type: graphql.Float},
			"expected":  &graphql.Field{Type: graphql.Float},
			"fraction":  &graphql.Field{Type: graphql.Float},
			"done":      &graphql.Field{Type: graphql.Boolean},
		},
	})

	queryType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Query",
		Fields: graphql.Fields{
			"plan": &graphql.Field{
				Type:        planType,
				Description: "Get a prefetch plan by ID",
				Args: graphql.FieldConfigArgument{
					"id": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return deps.Plans.GetByID(p.Context, p.Args["id"].(string))
				},
			},
			"plans": &graphql.Field{
				Type:        planPageType,
				Description: "List stored plans, newest first, without regions",
				Args: graphql.FieldConfigArgument{
					"limit":  &graphql.ArgumentConfig{Type: graphql.Int, DefaultValue: 20},
					"offset": &graphql.ArgumentConfig{Type: graphql.Int, DefaultValue: 0},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					plans, total, err := deps.Plans.List(p.Context, p.Args["limit"].(int), p.Args["offset"].(int))
					if err != nil {
						return nil, err
					}
					return map[string]interface{}{"total": total, "plans": plans}, nil
				},
			},
			"planProgress": &graphql.Field{
				Type:        progressType,
				Description: "Aggregate download progress of a plan",
				Args: graphql.FieldConfigArgument{
					"id": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return deps.Progress.Summary(p.Context, p.Args["id"].(string))
				},
			},
		},
	})

	mutationType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Mutation",
		Fields: graphql.Fields{
			"deletePlan": &graphql.Field{
				Type:        graphql.Boolean,
				Description: "Delete a plan and its progress reports",
				Args: graphql.FieldConfigArgument{
					"id": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					if err := deps.Plans.Delete(p.Context, p.Args["id"].(string)); err != nil {
						return false, err
					}
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
		if err := c.BodyParser(&req); err != nil || req.Query == "" {
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
