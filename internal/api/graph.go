package api

import (
	"time"

	"github.com/joshharrison/critpath/internal/cpm"
	"github.com/joshharrison/critpath/internal/graph"
)

// GraphNode is one task as the chart front end renders it.
type GraphNode struct {
	ID             string `json:"id"`
	Title          string `json:"title"`
	Duration       int    `json:"duration"`
	Scheduled      bool   `json:"scheduled"`
	IsCritical     bool   `json:"is_critical"`
	WaveIndex      int    `json:"wave_index"` // -1 when unscheduled
	EarliestStart  int    `json:"earliest_start"`
	EarliestFinish int    `json:"earliest_finish"`
	TotalFloat     int    `json:"total_float"`
}

type GraphEdge struct {
	From       string `json:"from"`
	To         string `json:"to"`
	IsCritical bool   `json:"is_critical"`
}

type GraphMetadata struct {
	ID              string `json:"id"`
	CreatedAt       string `json:"created_at"`
	View            string `json:"view"`
	TotalTasks      int    `json:"total_tasks"`
	TotalWaves      int    `json:"total_waves"`
	ProjectDuration int    `json:"project_duration"`
	Acyclic         bool   `json:"acyclic"`
}

type Graph struct {
	Nodes        []GraphNode   `json:"nodes"`
	Edges        []GraphEdge   `json:"edges"`
	CriticalPath []string      `json:"critical_path"`
	Metadata     GraphMetadata `json:"metadata"`
}

// toGraph converts an analysed snapshot into the normalised Graph the chart renders.
func toGraph(c *computation) *Graph {
	g := graph.Build(c.tasks, c.links)
	result := c.analysis.Result
	waves := cpm.Waves(result)

	waveOf := make(map[string]int)
	for _, w := range waves {
		for _, id := range w.TaskIDs {
			waveOf[id] = w.Index
		}
	}

	nodes := make([]GraphNode, 0, len(g.IDs))
	for _, id := range g.IDs {
		info, scheduled := result.ScheduleInfo[id]
		node := GraphNode{
			ID:         id,
			Title:      c.titles[id],
			Duration:   g.Tasks[id].Days(),
			Scheduled:  scheduled,
			IsCritical: info.IsCritical,
			WaveIndex:  -1,
		}
		if scheduled {
			node.WaveIndex = waveOf[id]
			node.EarliestStart = info.EarliestStart
			node.EarliestFinish = info.EarliestFinish
			node.TotalFloat = info.TotalFloat
		}
		nodes = append(nodes, node)
	}

	critical := make(map[[2]string]bool)
	for _, l := range cpm.CriticalLinks(result, c.links) {
		critical[[2]string{l.Source, l.Target}] = true
	}
	edges := make([]GraphEdge, 0, g.EdgeCount())
	for _, id := range g.IDs {
		for _, l := range g.Successors[id] {
			edges = append(edges, GraphEdge{
				From:       l.Source,
				To:         l.Target,
				IsCritical: critical[[2]string{l.Source, l.Target}],
			})
		}
	}

	return &Graph{
		Nodes:        nodes,
		Edges:        edges,
		CriticalPath: result.CriticalPath,
		Metadata: GraphMetadata{
			ID:              c.analysis.ID,
			CreatedAt:       c.analysis.CreatedAt.Format(time.RFC3339),
			View:            c.view,
			TotalTasks:      g.TaskCount(),
			TotalWaves:      len(waves),
			ProjectDuration: result.ProjectDuration,
			Acyclic:         result.Acyclic,
		},
	}
}
