package docs

import "github.com/swaggo/swag"

const docTemplate = `{
  "swagger": "2.0",
  "info": {
    "title": "Visa Processing Estimator",
    "description": "Processing time prediction, risk assessment and dataset statistics",
    "version": "1.0"
  },
  "basePath": "/",
  "paths": {
    "/api/health": {"get": {"tags": ["health"], "summary": "Liveness", "produces": ["application/json"], "responses": {"200": {"description": "OK"}}}},
    "/api/predict": {"post": {"tags": ["predict"], "summary": "Predict processing time", "consumes": ["application/json"], "produces": ["application/json"], "responses": {"200": {"description": "OK"}, "400": {"description": "Invalid request"}, "503": {"description": "Not ready"}}}},
    "/api/statistics": {"get": {"tags": ["statistics"], "summary": "Dataset and model statistics", "produces": ["application/json"], "responses": {"200": {"description": "OK"}}}},
    "/api/visa-types": {"get": {"tags": ["statistics"], "summary": "Per visa type statistics", "produces": ["application/json"], "responses": {"200": {"description": "OK"}}}},
    "/api/countries": {"get": {"tags": ["statistics"], "summary": "Per country statistics", "produces": ["application/json"], "responses": {"200": {"description": "OK"}}}},
    "/api/options": {"get": {"tags": ["statistics"], "summary": "Form options", "produces": ["application/json"], "responses": {"200": {"description": "OK"}}}},
    "/api/runs/latest": {"get": {"tags": ["runs"], "summary": "Latest pipeline run", "produces": ["application/json"], "responses": {"200": {"description": "OK"}, "404": {"description": "No runs"}}}},
    "/api/admin/reload": {"post": {"tags": ["admin"], "summary": "Reload model artifacts", "produces": ["application/json"], "responses": {"200": {"description": "OK"}, "401": {"description": "Invalid admin key"}}}}
  }
}`

func init() {
	swag.Register(swag.Name, &s{})
}

type s struct{}

func (s *s) ReadDoc() string {
	return docTemplate
}
