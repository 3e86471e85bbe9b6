package router

import (
	"github.com/gin-gonic/gin"
	"github.com/ifcvalidation/bff/internal/interfaces/http/handler"
)

// LegacyRoutes builds the dashboard API group mounted under the base path.
// Upload and report_error accept every method; the handlers decide what to
// do with the ones they do not serve.
func LegacyRoutes(h *handler.LegacyHandler, middleware ...gin.HandlerFunc) *DomainGroup {
	g := NewDomainGroup("legacy", "")
	g.Use(middleware...)

	g.GET("/me", h.Me)
	g.GET("/models_paginated/:start/:end", h.ModelsPaginated)
	g.GET("/download/:id", h.Download)
	g.Any("/upload", h.Upload)
	g.POST("/delete/:ids", h.Delete)
	g.DELETE("/delete/:ids", h.Delete)
	g.POST("/revalidate/:ids", h.Revalidate)
	g.GET("/report2/:id", h.Report)
	g.Any("/report_error/*path", h.ReportError)

	return g
}

// AuthRoutes builds the single sign-on group. The limiter middleware, when
// given, applies to login and callback only.
func AuthRoutes(h *handler.AuthHandler, limiter gin.HandlerFunc) *DomainGroup {
	g := NewDomainGroup("auth", "")

	signIn := []gin.HandlerFunc{h.Login}
	callback := []gin.HandlerFunc{h.Callback}
	if limiter != nil {
		signIn = []gin.HandlerFunc{limiter, h.Login}
		callback = []gin.HandlerFunc{limiter, h.Callback}
	}

	g.GET("/login", signIn...)
	g.GET("/callback", callback...)
	g.GET("/logout", h.Logout)

	return g
}

// SystemRoutes builds the unauthenticated operational endpoints
func SystemRoutes(h *handler.SystemHandler) *DomainGroup {
	return NewDomainGroup("system", "").GET("/health", h.Health)
}
