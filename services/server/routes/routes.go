// Copyright (C) 2025 Apifactory Authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/apifactory/apifactory/services/export"
	"github.com/apifactory/apifactory/services/gql"
	"github.com/apifactory/apifactory/services/resolver"
	"github.com/apifactory/apifactory/services/server/handlers"
	"github.com/apifactory/apifactory/services/server/observability"
)

// Deps carries the shared collaborators the routes close over.
type Deps struct {
	Resolver  *resolver.Resolver
	Synth     *gql.Synthesizer
	Analytics *observability.Analytics
	Metrics   *observability.APIMetrics
}

func SetupRoutes(router *gin.Engine, deps Deps) {
	st := deps.Resolver.Store()

	router.GET("/health", handlers.HealthCheck)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	router.POST("/graphql", handlers.GraphQL(deps.Synth))
	router.GET("/graphql/schema", handlers.GraphQLSDL(deps.Synth))

	api := router.Group("/api")
	{
		api.POST("/validate", handlers.ValidateDataset(st, deps.Metrics))
		api.GET("/status", handlers.Status(st))
		api.DELETE("/data", handlers.ClearDataset(st))
		api.GET("/analytics", handlers.Analytics(deps.Analytics))

		config := api.Group("/config")
		{
			config.GET("/endpoints", handlers.GetEndpointConfig(deps.Resolver))
			config.PUT("/endpoints", handlers.PutEndpointConfig(deps.Resolver))
		}

		exports := api.Group("/export")
		{
			exports.GET("/openapi", handlers.ExportOpenAPI(export.NewOpenAPIGenerator(deps.Resolver)))
			exports.GET("/postman", handlers.ExportPostman(export.NewPostmanGenerator(deps.Resolver)))
		}

		// Generated resource endpoints. The wildcard routes come last so the
		// fixed /api paths above always win.
		api.GET("/:resource", handlers.ListResource(deps.Resolver))
		api.POST("/:resource", handlers.CreateItem(deps.Resolver))
		api.GET("/:resource/:id", handlers.GetItem(deps.Resolver))
		api.PUT("/:resource/:id", handlers.ReplaceItem(deps.Resolver))
		api.PATCH("/:resource/:id", handlers.MergeItem(deps.Resolver))
		api.DELETE("/:resource/:id", handlers.DeleteItem(deps.Resolver))
	}
}
