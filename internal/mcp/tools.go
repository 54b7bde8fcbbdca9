package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"
)

type ListDisplaysInput struct{}

type DisplayEntry struct {
	Index   int     `json:"index"`
	Name    string  `json:"name"`
	X       int     `json:"x"`
	Y       int     `json:"y"`
	Width   int     `json:"width"`
	Height  int     `json:"height"`
	Scale   float64 `json:"scale"`
	Current bool    `json:"current"`
}

type ListDisplaysOutput struct {
	Displays []DisplayEntry `json:"displays"`
}

type CurrentDisplayInput struct{}

type CurrentDisplayOutput struct {
	Index   int    `json:"index"`
	Name    string `json:"name,omitempty"`
	Located bool   `json:"located"`
}

type MoveToDisplayInput struct {
	Index int `json:"index"`
}

type MoveToDisplayOutput struct {
	Moved bool `json:"moved"`
	Index int  `json:"index"`
}

type ReadSettingsInput struct{}

type ReadSettingsOutput struct {
	Version  uint64          `json:"version"`
	Document json.RawMessage `json:"document"`
}

func (s *Server) handleListDisplays(_ context.Context, _ *mcpsdk.CallToolRequest, _ ListDisplaysInput) (*mcpsdk.CallToolResult, ListDisplaysOutput, error) {
	data, err := s.client.GetDisplays()
	if err != nil {
		return nil, ListDisplaysOutput{}, err
	}

	entries := make([]DisplayEntry, len(data.Displays))
	for i, d := range data.Displays {
		entries[i] = DisplayEntry{
			Index:   d.Index,
			Name:    d.Name,
			X:       d.X,
			Y:       d.Y,
			Width:   d.Width,
			Height:  d.Height,
			Scale:   d.Scale,
			Current: d.Current,
		}
	}

	return nil, ListDisplaysOutput{Displays: entries}, nil
}

func (s *Server) handleCurrentDisplay(_ context.Context, _ *mcpsdk.CallToolRequest, _ CurrentDisplayInput) (*mcpsdk.CallToolResult, CurrentDisplayOutput, error) {
	data, err := s.client.GetDisplays()
	if err != nil {
		return nil, CurrentDisplayOutput{}, err
	}

	for _, d := range data.Displays {
		if d.Current {
			return nil, CurrentDisplayOutput{Index: d.Index, Name: d.Name, Located: true}, nil
		}
	}
	return nil, CurrentDisplayOutput{Located: false}, nil
}

func (s *Server) handleMoveToDisplay(_ context.Context, _ *mcpsdk.CallToolRequest, args MoveToDisplayInput) (*mcpsdk.CallToolResult, MoveToDisplayOutput, error) {
	if args.Index < 0 {
		return nil, MoveToDisplayOutput{}, fmt.Errorf("index must be non-negative, got %d", args.Index)
	}

	if err := s.client.MoveToDisplay(args.Index); err != nil {
		return nil, MoveToDisplayOutput{}, err
	}

	return nil, MoveToDisplayOutput{Moved: true, Index: args.Index}, nil
}

func (s *Server) handleReadSettings(_ context.Context, _ *mcpsdk.CallToolRequest, _ ReadSettingsInput) (*mcpsdk.CallToolResult, ReadSettingsOutput, error) {
	data, err := s.client.GetSettings()
	if err != nil {
		return nil, ReadSettingsOutput{}, err
	}

	return nil, ReadSettingsOutput{Version: data.Version, Document: data.Document}, nil
}
