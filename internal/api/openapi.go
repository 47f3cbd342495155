package api

// route describes one endpoint in the OpenAPI document.
type route struct {
	method      string
	path        string
	operationID string
	summary     string
	public      bool
	responses   map[string]string
}

var routes = []route{
	{"get", "/healthz", "healthz", "Service health", true, map[string]string{"200": "OK"}},
	{"get", "/workflows", "listWorkflows", "List workflows (query: mine, search, sort, limit)", false,
		map[string]string{"200": "Workflow list", "400": "Bad request"}},
	{"get", "/workflows/{jobID}", "getWorkflow", "Workflow detail with tasks, schedule and recent runs", false,
		map[string]string{"200": "Workflow overview", "404": "Workflow not found"}},
	{"get", "/bundles", "listBundles", "Bundles generated in the current session", false,
		map[string]string{"200": "Bundle list"}},
	{"post", "/bundles", "generateBundles", "Generate bundles for a batch of workflows", false,
		map[string]string{"200": "Batch result", "400": "Bad request", "409": "Generation already running", "502": "Workspace error"}},
	{"get", "/bundles/archive", "downloadArchive", "ZIP archive of the current session bundles", false,
		map[string]string{"200": "ZIP archive", "404": "No bundles generated"}},
	{"get", "/history", "listHistory", "Persisted generation history (query: limit, job_id)", false,
		map[string]string{"200": "History entries", "404": "History disabled"}},
	{"get", "/events", "streamEvents", "Server-sent batch progress events (header: Last-Event-ID)", false,
		map[string]string{"200": "text/event-stream"}},
}

// buildOpenAPIDoc returns an OpenAPI 3.1 document for the server routes.
func buildOpenAPIDoc() map[string]any {
	paths := map[string]any{}
	for _, rt := range routes {
		responses := map[string]any{}
		for code, desc := range rt.responses {
			responses[code] = map[string]any{"description": desc}
		}
		if !rt.public {
			responses["401"] = map[string]any{"description": "Missing or invalid API key"}
			responses["403"] = map[string]any{"description": "Token lacks the required scope"}
		}
		op := map[string]any{
			"operationId": rt.operationID,
			"summary":     rt.summary,
			"responses":   responses,
		}
		if !rt.public {
			op["security"] = []any{map[string]any{"BearerAuth": []string{}}}
		}
		if rt.method == "post" && rt.path == "/bundles" {
			op["requestBody"] = map[string]any{
				"required": true,
				"content": map[string]any{
					"application/json": map[string]any{"schema": generateRequestSchema()},
				},
			}
		}

		item, _ := paths[rt.path].(map[string]any)
		if item == nil {
			item = map[string]any{}
			paths[rt.path] = item
		}
		item[rt.method] = op
	}

	return map[string]any{
		"openapi": "3.1.0",
		"info": map[string]any{
			"title":   "dabops",
			"version": "1.0",
		},
		"paths": paths,
		"components": map[string]any{
			"securitySchemes": map[string]any{
				"BearerAuth": map[string]any{
					"type":   "http",
					"scheme": "bearer",
				},
			},
		},
	}
}

func generateRequestSchema() map[string]any {
	return map[string]any{
		"type":     "object",
		"required": []string{"job_ids"},
		"properties": map[string]any{
			"job_ids":              map[string]any{"type": "array", "items": map[string]any{"type": "integer"}},
			"prefix":               map[string]any{"type": "string", "pattern": "^[a-zA-Z0-9_-]+$", "maxLength": 100},
			"mode":                 map[string]any{"type": "string", "enum": []string{"full", "resources-only"}},
			"include_dependencies": map[string]any{"type": "boolean"},
			"auto_save":            map[string]any{"type": "boolean"},
			"clear_previous":       map[string]any{"type": "boolean"},
		},
	}
}
