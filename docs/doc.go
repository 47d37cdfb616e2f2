// Package docs provides generated OpenAPI documentation.
//
// Sift API
//
//	@title			Sift API
//	@version		1.0
//	@description	Extract structured data from PDF pages: upload a document, pick pages, describe the data with a schema, and download the result as JSON.
//	@termsOfService	http://swagger.io/terms/
//
//	@contact.name	API Support
//	@contact.url	https://github.com/jackzampolin/sift
//
//	@license.name	MIT
//	@license.url	https://opensource.org/licenses/MIT
//
//	@host		localhost:8080
//	@BasePath	/
//
//	@schemes	http https
package docs

//go:generate swag init -g docs/doc.go -d ../ -o . --outputTypes go --parseInternal
