package api

import (
	"encoding/base64"
	"encoding/json"
	"net/http"

	yaml "gopkg.in/yaml.v3"
)

// SwaggerHandler serves an interactive Swagger UI with the spec inlined and
// member/auth presets stored in localStorage.
func (s *Server) SwaggerHandler(w http.ResponseWriter, r *http.Request) {
	data, err := openAPILoad()
	if err != nil {
		writeProblem(w, http.StatusInternalServerError, "OpenAPI not available", err.Error(), r.URL.Path)
		return
	}
	var obj map[string]any
	if err := yaml.Unmarshal(data, &obj); err != nil {
		writeProblem(w, http.StatusInternalServerError, "OpenAPI parse failed", err.Error(), r.URL.Path)
		return
	}
	js, _ := json.Marshal(obj)
	b64 := base64.StdEncoding.EncodeToString(js)
	html := `<!DOCTYPE html><html lang="en"><head>
	<title>API Console</title>
	<meta charset="utf-8"/>
	<meta name="viewport" content="width=device-width,initial-scale=1">
	<link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@5/swagger-ui.css" />
	<style>body{margin:0} .topbar{display:none} .cfg{position:fixed;top:8px;right:8px;padding:8px;background:#fff;border:1px solid #ddd;z-index:9}</style>
	</head><body>
	<div class="cfg">
	  <div><strong>Auth Presets</strong></div>
	  <div><label>Member id: <input id="member" value="m_demo"></label></div>
	  <div><label>Name: <input id="name" value="guest"></label></div>
	  <div><label>Bearer token: <input id="token" style="width:240px"></label></div>
	  <button onclick="saveAuth()">Save</button>
	</div>
	<div id="swagger-ui"></div>
	<script src="https://unpkg.com/swagger-ui-dist@5/swagger-ui-bundle.js"></script>
	<script src="https://unpkg.com/swagger-ui-dist@5/swagger-ui-standalone-preset.js"></script>
	<script>
	const spec = JSON.parse(atob('` + b64 + `'));
	function loadAuth(){
	  const m=localStorage.getItem('member')||''; const n=localStorage.getItem('name')||''; const k=localStorage.getItem('token')||'';
	  document.getElementById('member').value=m; document.getElementById('name').value=n; document.getElementById('token').value=k;
	  return {member:m, name:n, token:k};
	}
	function saveAuth(){ const m=document.getElementById('member').value; const n=document.getElementById('name').value; const k=document.getElementById('token').value; localStorage.setItem('member',m); localStorage.setItem('name',n); localStorage.setItem('token',k); alert('Saved'); }
	loadAuth();
	const ui = SwaggerUIBundle({
		spec: spec,
		dom_id: '#swagger-ui',
		deepLinking: true,
		presets: [SwaggerUIBundle.presets.apis, SwaggerUIStandalonePreset],
		layout: "BaseLayout",
		requestInterceptor: (req) => {
			const p = loadAuth();
			if (p.token) { req.headers['Authorization'] = 'Bearer ' + p.token; }
			if (p.member) req.headers['X-Member-Id'] = p.member;
			if (p.name) req.headers['X-Member-Name'] = p.name;
			return req;
		}
	});
	</script>
	</body></html>`
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write([]byte(html))
}
