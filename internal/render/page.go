package render

import (
	"html/template"
	"net/http"
	"strconv"

	"github.com/Mohsinsiddi/ogview/internal/cascade"
	"github.com/Mohsinsiddi/ogview/internal/deployments"
	"github.com/ethereum/go-ethereum/common"
)

type pageOption struct {
	Address  string
	Name     string
	Version  string
	Selected bool
}

type pageData struct {
	Network   string
	Contracts []pageOption
	State     cascade.State
	TokenID   string
	TokenPath string
	HTML      string
	Error     string
	TokenMax  uint64
}

var pageTmpl = template.Must(template.New("page").Parse(`<!doctype html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>ogview{{if .TokenID}} · {{.TokenID}}{{end}}</title>
<style>
body{margin:0;font-family:ui-monospace,Menlo,monospace;background:#111;color:#ddd;display:flex;flex-direction:column;height:100vh}
form{display:flex;gap:1rem;align-items:end;padding:.75rem 1rem;background:#1b1b1b;border-bottom:1px solid #333;flex-wrap:wrap}
label{display:flex;flex-direction:column;font-size:.75rem;color:#999;gap:.25rem}
select,input{background:#222;color:#eee;border:1px solid #444;padding:.35rem;font:inherit}
button{background:#7c3aed;color:#fff;border:0;padding:.45rem 1rem;font:inherit;cursor:pointer}
.meta{font-size:.75rem;color:#888;padding:.35rem 1rem}
.meta a{color:#a78bfa}
.err{color:#f87171;padding:2rem;text-align:center}
.ok{color:#4ade80}.warn{color:#facc15}
iframe{flex:1;border:0;background:#fff;width:100%}
</style>
</head>
<body>
<form method="get" action="/">
  <label>Contract
    <select name="contractAddress">
    {{- range .Contracts}}
      <option value="{{.Address}}"{{if .Selected}} selected{{end}}>{{.Name}} ({{.Version}})</option>
    {{- end}}
    </select>
  </label>
  <label>Project{{with .State.ProjectRange}} [{{.Min}}–{{.Max}}]{{end}}
    <input type="number" name="projectId" min="{{with .State.ProjectRange}}{{.Min}}{{end}}" max="{{with .State.ProjectRange}}{{.Max}}{{end}}"{{with .State.ProjectID}} value="{{.}}"{{end}}>
  </label>
  <label>Token{{with .State.Invocations}} ({{.}} minted){{end}}
    <input type="number" name="tokenInvocation" min="0" max="{{.TokenMax}}"{{with .State.Token}} value="{{.}}"{{end}}>
  </label>
  <button type="submit">Render</button>
</form>
<div class="meta">
  network {{.Network}}
  {{- if .TokenID}} · token {{.TokenID}} · <a href="{{.TokenPath}}">raw markup</a>{{end}}
  {{- with .State.OnChain}} · {{if .FullyOnChain}}<span class="ok">fully on chain</span>{{else}}<span class="warn">uses off-chain dependencies</span>{{end}}{{end}}
</div>
{{if .Error -}}
<div class="err">{{.Error}}</div>
{{- else if .HTML -}}
<iframe sandbox="allow-scripts" title="token {{.TokenID}}" srcdoc="{{.HTML}}"></iframe>
{{- end}}
</body>
</html>
`))

// handlePage resolves the query-string selection through a cascade
// controller and embeds the token markup in a sandboxed frame.
func (s *Server) handlePage(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	sel := cascade.Selection{
		Contract:  q.Get("contractAddress"),
		ProjectID: parseUint(q.Get("projectId")),
		Token:     parseUint(q.Get("tokenInvocation")),
	}

	ctrl := cascade.New(s.reader, s.Registry(), cascade.WithLogger(s.log))
	defer ctrl.Close()

	data := pageData{Network: s.network}
	initErr := ctrl.Initialize(r.Context(), sel)
	data.State = ctrl.State()
	data.Contracts = pageOptions(ctrl.Registry(), data.State.Contract)
	if n := data.State.Invocations; n != nil && *n > 0 {
		data.TokenMax = *n - 1
	}

	switch tokenID, ok := data.State.TokenID(); {
	case initErr != nil:
		s.log.Warn("selection failed", "contract", sel.Contract, "err", initErr)
		data.Error = GenericError
	case !ok:
		s.log.Warn("selection incomplete", "contract", data.State.Contract, "err", data.State.Err)
		data.Error = GenericError
	default:
		data.TokenID = tokenID.String()
		data.TokenPath = TokenPath(data.State.Contract, *data.State.ProjectID, *data.State.Token)
		html, err := s.tokenMarkup(r.Context(), common.HexToAddress(data.State.Contract), *data.State.ProjectID, *data.State.Token)
		if err != nil {
			s.log.Warn("token fetch failed", "contract", data.State.Contract, "token", data.TokenID, "err", err)
			data.Error = GenericError
		} else {
			data.HTML = html
		}
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := pageTmpl.Execute(w, data); err != nil {
		s.log.Error("rendering page", "err", err)
	}
}

func pageOptions(reg *deployments.Registry, selected string) []pageOption {
	all := reg.All()
	out := make([]pageOption, 0, len(all))
	for _, d := range all {
		out = append(out, pageOption{
			Address:  d.Address.Hex(),
			Name:     d.DisplayName(),
			Version:  d.VersionString(),
			Selected: d.Address.Hex() == selected,
		})
	}
	return out
}

func parseUint(s string) *uint64 {
	if s == "" {
		return nil
	}
	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return nil
	}
	return &v
}
