package graph

import "fmt"

// Options controls window size and the edge and node thresholds.
type Options struct {
	WindowSize    int `json:"window_size" validate:"omitempty,min=1,max=100"`
	MinEdgeWeight int `json:"min_edge_weight" validate:"omitempty,min=1"`
	MinMentions   int `json:"min_mentions" validate:"omitempty,min=1"`
}

func DefaultOptions() Options {
	return Options{
		WindowSize:    3,
		MinEdgeWeight: 2,
		MinMentions:   3,
	}
}

// WithDefaults fills zero fields from DefaultOptions.
func (o Options) WithDefaults() Options {
	d := DefaultOptions()
	if o.WindowSize == 0 {
		o.WindowSize = d.WindowSize
	}
	if o.MinEdgeWeight == 0 {
		o.MinEdgeWeight = d.MinEdgeWeight
	}
	if o.MinMentions == 0 {
		o.MinMentions = d.MinMentions
	}
	return o
}

func (o Options) Validate() error {
	if o.WindowSize < 1 {
		return fmt.Errorf("window_size must be positive, got %d", o.WindowSize)
	}
	if o.MinEdgeWeight < 1 {
		return fmt.Errorf("min_edge_weight must be positive, got %d", o.MinEdgeWeight)
	}
	if o.MinMentions < 1 {
		return fmt.Errorf("min_mentions must be positive, got %d", o.MinMentions)
	}
	return nil
}
