package domain

// ToolCost is one row of the tool-cost catalog. Costs are whole credits.
type ToolCost struct {
	ToolID      string `json:"tool_id"`
	CostPerTask int64  `json:"cost_per_task"`
}
