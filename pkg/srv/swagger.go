/*
 Licensed under the Apache License, Version 2.0 (the "License");
 you may not use this file except in compliance with the License.
 You may obtain a copy of the License at

     https://www.apache.org/licenses/LICENSE-2.0

 Unless required by applicable law or agreed to in writing, software
 distributed under the License is distributed on an "AS IS" BASIS,
 WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 See the License for the specific language governing permissions and
 limitations under the License.
*/

package srv

import (
	"encoding/json"

	"github.com/go-openapi/loads"
)

// swaggerJSON describes the REST API. It is validated on startup and served
// at /api/swagger.json for the Redoc page.
const swaggerJSON = `{
  "swagger": "2.0",
  "info": {
    "title": "go-dram API",
    "description": "RESTful APIs to interact with the go-dram server",
    "version": "1.0.0"
  },
  "basePath": "/api",
  "schemes": ["http"],
  "consumes": ["application/json"],
  "produces": ["application/json"],
  "paths": {
    "/dram": {
      "get": {
        "summary": "read decoded DDR details",
        "responses": {
          "200": {"$ref": "#/responses/okResp"},
          "404": {"$ref": "#/responses/notFound"}
        }
      }
    },
    "/dram/frequencies": {
      "get": {
        "summary": "read enabled DDR frequencies in Hz",
        "responses": {
          "200": {"$ref": "#/responses/okResp"},
          "404": {"$ref": "#/responses/notFound"}
        }
      }
    },
    "/dram/hbb": {
      "get": {
        "summary": "read the highest bank bit",
        "responses": {
          "200": {"$ref": "#/responses/okResp"},
          "404": {"$ref": "#/responses/notFound"}
        }
      }
    },
    "/dram/refresh": {
      "post": {
        "summary": "reread the shared memory snapshot and decode the DDR info item",
        "responses": {
          "200": {"$ref": "#/responses/okResp"},
          "404": {"$ref": "#/responses/notFound"},
          "502": {"$ref": "#/responses/badUpstream"}
        }
      }
    },
    "/smem/items": {
      "get": {
        "summary": "list items present in the shared memory snapshot",
        "responses": {
          "200": {"$ref": "#/responses/okResp"},
          "502": {"$ref": "#/responses/badUpstream"}
        }
      }
    },
    "/diagnostics": {
      "get": {
        "summary": "list blobs that could not be decoded",
        "responses": {
          "200": {"$ref": "#/responses/okResp"}
        }
      }
    }
  },
  "responses": {
    "okResp": {"description": "OK"},
    "notFound": {"description": "DDR details not available"},
    "badUpstream": {"description": "shared memory snapshot could not be read"}
  }
}`

// loadSwagger validates the embedded API description
func loadSwagger() (*loads.Document, error) {
	return loads.Analyzed(json.RawMessage(swaggerJSON), "")
}
