package mcp

import (
	"context"
	"fmt"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/luigirizzo/lrtile/internal/tiling"
)

func (s *Server) handleSnapWindow(_ context.Context, _ *mcpsdk.CallToolRequest, args SnapWindowInput) (*mcpsdk.CallToolResult, SnapWindowOutput, error) {
	cmd, err := tiling.ParseCommand(args.Command)
	if err != nil {
		return nil, SnapWindowOutput{}, err
	}

	data, err := s.client.Snap(cmd)
	if err != nil {
		s.logger.Warn("snap_window failed", "command", string(cmd), "error", err)
		return nil, SnapWindowOutput{}, err
	}
	s.logger.Debug("snap_window", "command", string(cmd), "changed", data.Result.Changed)

	return nil, SnapWindowOutput{
		Enabled: data.Enabled,
		Changed: data.Result.Changed,
		Result:  data.Result,
	}, nil
}

func (s *Server) handleUndoSnap(_ context.Context, _ *mcpsdk.CallToolRequest, _ UndoSnapInput) (*mcpsdk.CallToolResult, UndoSnapOutput, error) {
	if err := s.client.Undo(); err != nil {
		return nil, UndoSnapOutput{}, err
	}
	return nil, UndoSnapOutput{Restored: true}, nil
}

func (s *Server) handleListDisplays(_ context.Context, _ *mcpsdk.CallToolRequest, args ListDisplaysInput) (*mcpsdk.CallToolResult, ListDisplaysOutput, error) {
	fetch := s.client.GetDisplays
	if args.Refresh {
		fetch = s.client.RefreshDisplays
	}
	data, err := fetch()
	if err != nil {
		return nil, ListDisplaysOutput{}, err
	}

	out := ListDisplaysOutput{Displays: make([]DisplayOutput, 0, len(data.Displays))}
	for _, d := range data.Displays {
		out.Displays = append(out.Displays, DisplayOutput{
			ID:     d.ID,
			Name:   d.Name,
			Bounds: d.Bounds,
			Usable: d.Usable,
		})
	}
	return nil, out, nil
}

func (s *Server) handleGetStatus(_ context.Context, _ *mcpsdk.CallToolRequest, _ GetStatusInput) (*mcpsdk.CallToolResult, GetStatusOutput, error) {
	st, err := s.client.GetStatus()
	if err != nil {
		return nil, GetStatusOutput{}, err
	}
	return nil, GetStatusOutput{
		Enabled:       st.Snapper.Enabled,
		Grid:          st.Snapper.Grid,
		UptimeSeconds: st.UptimeSeconds,
		ConfigPath:    st.ConfigPath,
		DisplayCount:  st.DisplayCount,
		LastCommand:   string(st.Snapper.LastCommand),
		LastError:     st.Snapper.LastError,
		LastResult:    st.Snapper.LastResult,
	}, nil
}

func (s *Server) handleSetEnabled(_ context.Context, _ *mcpsdk.CallToolRequest, args SetEnabledInput) (*mcpsdk.CallToolResult, SetEnabledOutput, error) {
	enabled, err := s.client.SetEnabled(args.Enabled, args.Persist)
	if err != nil {
		return nil, SetEnabledOutput{}, err
	}
	return nil, SetEnabledOutput{Enabled: enabled}, nil
}

func (s *Server) handlePreviewSnap(_ context.Context, _ *mcpsdk.CallToolRequest, args PreviewSnapInput) (*mcpsdk.CallToolResult, PreviewSnapOutput, error) {
	cmd, err := tiling.ParseCommand(args.Command)
	if err != nil {
		return nil, PreviewSnapOutput{}, err
	}

	cfg := s.defaults
	override := func(dst *int, v *int, name string, min int) error {
		if v == nil {
			return nil
		}
		if *v < min {
			return fmt.Errorf("%s must be >= %d", name, min)
		}
		*dst = *v
		return nil
	}
	if err := override(&cfg.Rows, args.Rows, "rows", 1); err != nil {
		return nil, PreviewSnapOutput{}, err
	}
	if err := override(&cfg.Cols, args.Cols, "cols", 1); err != nil {
		return nil, PreviewSnapOutput{}, err
	}
	if err := override(&cfg.Border, args.Border, "border", 0); err != nil {
		return nil, PreviewSnapOutput{}, err
	}
	if err := override(&cfg.Step, args.Step, "step", 1); err != nil {
		return nil, PreviewSnapOutput{}, err
	}

	res, err := s.engine.Apply(args.Window.rect(), args.Display.rect(), cfg, cmd)
	if err != nil {
		return nil, PreviewSnapOutput{}, err
	}
	return nil, PreviewSnapOutput{Config: cfg, Result: res}, nil
}
