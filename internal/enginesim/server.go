// Package enginesim is a local stand-in for the remediation engine's
// HTTP API. It serves seeded workflows, fabricates execution results,
// and exists so the editor can be developed and demonstrated without
// a real engine deployment. It never executes anything for real.
package enginesim

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/carsch18/opsflow/pkg/workflow"
)

// Server holds the simulated engine's workflow store.
type Server struct {
	mu        sync.Mutex
	workflows map[string]*workflow.Workflow
	order     []string
}

// NewServer creates a simulator seeded with the demo workflows.
func NewServer() (*Server, error) {
	seeds, err := seedWorkflows()
	if err != nil {
		return nil, err
	}

	s := &Server{
		workflows: make(map[string]*workflow.Workflow, len(seeds)),
		order:     make([]string, 0, len(seeds)),
	}
	for _, wf := range seeds {
		s.workflows[wf.ID] = wf
		s.order = append(s.order, wf.ID)
	}
	return s, nil
}

// AddWorkflow stores an extra workflow, such as one loaded from an
// exported document. Ids must not collide with seeded workflows.
func (s *Server) AddWorkflow(wf *workflow.Workflow) error {
	if wf == nil || wf.ID == "" {
		return errors.New("workflow must have an id")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.workflows[wf.ID]; exists {
		return fmt.Errorf("workflow already stored: %s", wf.ID)
	}
	s.workflows[wf.ID] = wf
	s.order = append(s.order, wf.ID)
	return nil
}

// WorkflowIDs returns the stored workflow ids in seed order.
func (s *Server) WorkflowIDs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.order...)
}

// Router builds the gin router with all engine routes.
func (s *Server) Router() *gin.Engine {
	router := gin.Default()

	router.GET("/healthz", s.handleHealth)

	v1 := router.Group("/api/v1")
	{
		v1.GET("/workflows", s.handleList)
		v1.GET("/workflows/:id", s.handleFetch)
		v1.POST("/workflows/:id/execute", s.handleExecute)
		v1.POST("/workflows/:id/clone", s.handleClone)
	}

	return router
}

// Run starts the simulator on the given address and blocks.
func (s *Server) Run(addr string) error {
	gin.SetMode(gin.ReleaseMode)
	return s.Router().Run(addr)
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) handleList(c *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	summaries := make([]gin.H, 0, len(s.order))
	for _, id := range s.order {
		wf := s.workflows[id]
		summaries = append(summaries, gin.H{
			"id":    wf.ID,
			"name":  wf.Name,
			"nodes": len(wf.Nodes),
			"edges": len(wf.Edges),
		})
	}

	c.JSON(http.StatusOK, gin.H{"workflows": summaries})
}

func (s *Server) handleFetch(c *gin.Context) {
	id := c.Param("id")

	s.mu.Lock()
	wf, ok := s.workflows[id]
	s.mu.Unlock()

	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "workflow not found: " + id})
		return
	}

	c.JSON(http.StatusOK, wf)
}

func (s *Server) handleExecute(c *gin.Context) {
	id := c.Param("id")

	s.mu.Lock()
	wf, ok := s.workflows[id]
	s.mu.Unlock()

	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "workflow not found: " + id})
		return
	}

	// An empty body means no trigger data and a real run.
	var req struct {
		TriggerData map[string]interface{} `json:"trigger_data"`
		DryRun      bool                   `json:"dry_run"`
	}
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return
	}

	c.JSON(http.StatusOK, simulateRun(wf, req.TriggerData, req.DryRun))
}

func (s *Server) handleClone(c *gin.Context) {
	id := c.Param("id")

	s.mu.Lock()
	defer s.mu.Unlock()

	wf, ok := s.workflows[id]
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "workflow not found: " + id})
		return
	}

	// Copy through the wire codec so the clone shares nothing with
	// the original.
	data, err := workflow.ToJSON(wf)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to serialize workflow: " + err.Error()})
		return
	}
	clone, err := workflow.Parse(data)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to copy workflow: " + err.Error()})
		return
	}

	clone.ID = "wf-" + uuid.New().String()[:8]
	clone.Name = "Copy of " + wf.Name

	s.workflows[clone.ID] = clone
	s.order = append(s.order, clone.ID)

	c.JSON(http.StatusCreated, gin.H{"id": clone.ID, "name": clone.Name})
}
