package api

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"github.com/appforge-dev/appforge/internal/domain/appspec"
	staterepo "github.com/appforge-dev/appforge/internal/infra/repository/state"
)

// flowNode is one node of the app flow graph. Positions are a fixed
// three-column layout: screens, API endpoints, data models.
type flowNode struct {
	ID       string                 `json:"id"`
	Type     string                 `json:"type"`
	Data     map[string]interface{} `json:"data"`
	Position flowPosition           `json:"position"`
}

type flowPosition struct {
	X int `json:"x"`
	Y int `json:"y"`
}

type flowEdge struct {
	ID       string `json:"id"`
	Source   string `json:"source"`
	Target   string `json:"target"`
	Animated bool   `json:"animated,omitempty"`
}

type flowGraph struct {
	Nodes []flowNode `json:"nodes"`
	Edges []flowEdge `json:"edges"`
}

// handleFlow derives the app flow graph from the session's AppSpec.
// Sessions without a spec yet get an empty graph, not an error, so clients
// can poll from the start of a run.
func (s *Server) handleFlow(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["sessionID"]
	if sessionID == "" {
		active := s.registry.GetActiveSession()
		if active == nil {
			writeJSON(w, http.StatusOK, emptyFlowGraph())
			return
		}
		sessionID = active.ID
	}

	store := staterepo.NewStore(s.fs, s.home, sessionID)
	st, err := store.Load()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if st == nil || st.AppSpec == nil {
		writeJSON(w, http.StatusOK, emptyFlowGraph())
		return
	}

	writeJSON(w, http.StatusOK, buildFlowGraph(st.AppSpec))
}

func emptyFlowGraph() *flowGraph {
	return &flowGraph{Nodes: []flowNode{}, Edges: []flowEdge{}}
}

// buildFlowGraph lays out screens, endpoints, and models in columns and
// connects them by name overlap: a screen feeds the endpoints whose path
// mentions it, an endpoint feeds the models its path mentions.
func buildFlowGraph(spec *appspec.AppSpec) *flowGraph {
	g := emptyFlowGraph()

	for i, screen := range spec.Screens {
		g.Nodes = append(g.Nodes, flowNode{
			ID:   "screen-" + screen.Name,
			Type: "screen",
			Data: map[string]interface{}{
				"label":       screen.Name,
				"description": screen.Description,
				"protected":   screen.Protected,
			},
			Position: flowPosition{X: 50, Y: i*160 + 50},
		})
	}

	for i, ep := range spec.APIEndpoints {
		g.Nodes = append(g.Nodes, flowNode{
			ID:   endpointNodeID(ep),
			Type: "api",
			Data: map[string]interface{}{
				"method": ep.Method,
				"path":   ep.Path,
				"auth":   ep.Auth,
			},
			Position: flowPosition{X: 450, Y: i*160 + 50},
		})
	}

	for i, model := range spec.DataModels {
		fields := make([]string, 0, len(model.Fields))
		for _, f := range model.Fields {
			fields = append(fields, f.Name)
		}
		g.Nodes = append(g.Nodes, flowNode{
			ID:   "db-" + model.Name,
			Type: "db",
			Data: map[string]interface{}{
				"name":   model.Name,
				"fields": fields,
			},
			Position: flowPosition{X: 850, Y: i*160 + 50},
		})
	}

	for _, screen := range spec.Screens {
		needle := strings.TrimSuffix(strings.ToLower(screen.Name), "screen")
		for _, ep := range spec.APIEndpoints {
			if needle != "" && strings.Contains(strings.ToLower(ep.Path), needle) {
				g.Edges = append(g.Edges, flowEdge{
					ID:       fmt.Sprintf("e-s-%s-a-%s", screen.Name, ep.Path),
					Source:   "screen-" + screen.Name,
					Target:   endpointNodeID(ep),
					Animated: true,
				})
			}
		}
	}

	for _, ep := range spec.APIEndpoints {
		for _, model := range spec.DataModels {
			if strings.Contains(strings.ToLower(ep.Path), strings.ToLower(model.Name)) {
				g.Edges = append(g.Edges, flowEdge{
					ID:       fmt.Sprintf("e-a-%s-d-%s", ep.Path, model.Name),
					Source:   endpointNodeID(ep),
					Target:   "db-" + model.Name,
					Animated: true,
				})
			}
		}
	}

	return g
}

func endpointNodeID(ep appspec.APIEndpoint) string {
	return fmt.Sprintf("api-%s-%s", ep.Method, ep.Path)
}
