// Package docs holds the generated Swagger specification of the marketing
// console API. Regenerate docs.go with:
//
//	swag init -g cmd/server/main.go -o docs
package docs
