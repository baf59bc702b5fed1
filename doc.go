// Package rim provides top-level metadata for the RIM API.
//
// @title RIM API
// @version 0.1.0
// @description Schema-driven records with confidentiality-aware reads and a full edit-log trail.
// @BasePath /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Provide the user bearer token as `Bearer <token>`.
package rim
