package api

import (
	"errors"
	"fmt"
	"net/http"
	"sort"

	"github.com/platinummonkey/hub/pkg/assembly"
	"github.com/platinummonkey/hub/pkg/container"
	"github.com/platinummonkey/hub/pkg/httputil"
	"github.com/platinummonkey/hub/pkg/observability"
)

// assembled writes 503 and returns nil when nothing has been built yet
func (s *Server) assembled(w http.ResponseWriter) *assembly.Result {
	res := s.Current()
	if res == nil {
		httputil.WriteServiceUnavailable(w, ErrNotAssembled.Error())
	}
	return res
}

func (s *Server) getAssembly(w http.ResponseWriter, r *http.Request) {
	res := s.assembled(w)
	if res == nil {
		return
	}
	httputil.WriteJSONOrError(w, http.StatusOK, Summarize(res), "failed to encode assembly")
}

func (s *Server) rebuildAssembly(w http.ResponseWriter, r *http.Request) {
	if s.rebuild == nil {
		httputil.WriteErrorMessage(w, http.StatusMethodNotAllowed, "rebuild is not enabled")
		return
	}

	res, err := s.rebuild(r.Context())
	if err != nil {
		observability.GetLogger(r.Context()).WithError(err).Warn("Rebuild requested over HTTP failed")
		httputil.WriteErrorMessage(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	s.Update(res)
	httputil.WriteJSONOrError(w, http.StatusOK, Summarize(res), "failed to encode assembly")
}

// Summarize reports the counts of an assembly result
func Summarize(res *assembly.Result) AssemblyInfo {
	info := AssemblyInfo{
		RunID:      res.RunID,
		Source:     res.Source,
		Duration:   res.Duration,
		Plugins:    res.Registry.Count(),
		Levels:     len(res.Levels),
		Namespaces: len(res.Container.Resolver().Namespaces()),
		Replaces:   res.Replaces.Len(),
		Proxies:    res.Proxies.Len(),
	}
	seen := make(map[string]bool)
	for _, deps := range res.Registry.UnknownDependencies() {
		for _, dep := range deps {
			if !seen[dep] {
				seen[dep] = true
				info.Unknown = append(info.Unknown, dep)
			}
		}
	}
	sort.Strings(info.Unknown)
	return info
}

func (s *Server) listPlugins(w http.ResponseWriter, r *http.Request) {
	res := s.assembled(w)
	if res == nil {
		return
	}

	out := make([]PluginInfo, 0, res.Registry.Count())
	for level, items := range res.Levels {
		for _, item := range items {
			out = append(out, PluginInfo{Descriptor: item, Level: level})
		}
	}
	httputil.WriteJSONOrError(w, http.StatusOK, out, "failed to encode plugins")
}

func (s *Server) getPlugin(w http.ResponseWriter, r *http.Request) {
	res := s.assembled(w)
	if res == nil {
		return
	}

	name, err := httputil.ParsePathString(r, "name")
	if err != nil {
		httputil.WriteBadRequest(w, err.Error())
		return
	}

	for level, items := range res.Levels {
		for _, item := range items {
			if item.Name == name {
				httputil.WriteJSONOrError(w, http.StatusOK, PluginInfo{Descriptor: item, Level: level}, "failed to encode plugin")
				return
			}
		}
	}
	httputil.WriteNotFoundError(w, fmt.Sprintf("plugin not found: %s", name))
}

func (s *Server) getLevels(w http.ResponseWriter, r *http.Request) {
	res := s.assembled(w)
	if res == nil {
		return
	}

	levels := make([][]string, 0, len(res.Levels))
	for _, items := range res.Levels {
		names := make([]string, 0, len(items))
		for _, item := range items {
			names = append(names, item.Name)
		}
		levels = append(levels, names)
	}
	httputil.WriteJSONOrError(w, http.StatusOK, levels, "failed to encode levels")
}

func (s *Server) getGraph(w http.ResponseWriter, r *http.Request) {
	res := s.assembled(w)
	if res == nil {
		return
	}

	external := httputil.ParseQueryBool(r, "external", false)
	httputil.WriteJSONOrError(w, http.StatusOK, res.Registry.Graph().ToCytoscape(external), "failed to encode graph")
}

func (s *Server) listNamespaces(w http.ResponseWriter, r *http.Request) {
	res := s.assembled(w)
	if res == nil {
		return
	}
	httputil.WriteJSONOrError(w, http.StatusOK, res.Container.Resolver().Namespaces(), "failed to encode namespaces")
}

func (s *Server) getRules(w http.ResponseWriter, r *http.Request) {
	res := s.assembled(w)
	if res == nil {
		return
	}
	httputil.WriteJSONOrError(w, http.StatusOK, RulesResponse{
		Replaces: res.Replaces.Table(),
		Proxies:  res.Proxies.Table(),
	}, "failed to encode rules")
}

// resolve shows where an identifier would be loaded from, after replacement,
// without building anything
func (s *Server) resolve(w http.ResponseWriter, r *http.Request) {
	res := s.assembled(w)
	if res == nil {
		return
	}

	id, err := httputil.ParsePathString(r, "id")
	if err != nil {
		httputil.WriteBadRequest(w, err.Error())
		return
	}

	c := res.Container
	dep, err := c.Parser().Parse(id)
	if err != nil {
		httputil.WriteBadRequest(w, err.Error())
		return
	}

	out := ResolveResponse{ID: id, Module: dep.Module, Export: dep.Export, Life: dep.Life.String()}
	modified := c.PreProcessor().Modify(dep, nil)
	if modified.Module != dep.Module {
		out.Replaced = modified.Module
	}

	path, err := c.Resolver().Resolve(modified.Module)
	if err != nil {
		if errors.Is(err, container.ErrNamespaceNotFound) {
			httputil.WriteDetailedError(w, http.StatusNotFound, err, map[string]string{"module": modified.Module})
			return
		}
		httputil.WriteInternalError(w, err)
		return
	}
	root, _ := c.Resolver().Lookup(modified.Module)
	out.Namespace = root.Namespace
	out.Path = path
	httputil.WriteJSONOrError(w, http.StatusOK, out, "failed to encode resolution")
}
