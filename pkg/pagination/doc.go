// Package pagination collects every page of a cursor-paginated MCP list
// operation.
//
// MCP list methods (tools/list, resources/list) return an opaque nextCursor
// when more results exist. CollectAll keeps requesting pages until the cursor
// is empty:
//
//	tools, err := pagination.CollectAll(ctx, func(ctx context.Context, cursor string) ([]*mcp.Tool, string, error) {
//	    res, err := session.ListTools(ctx, &mcp.ListToolsParams{Cursor: cursor})
//	    if err != nil {
//	        return nil, "", err
//	    }
//	    return res.Tools, res.NextCursor, nil
//	})
//
// A backend that hands back a cursor it already returned, or that never stops
// paging, is cut off with ErrCursorLoop or ErrTooManyPages.
package pagination
