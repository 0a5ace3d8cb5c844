package api

import (
    "context"
    "sort"
)

func (s *Server) logEvent(ctx context.Context, event string, fields map[string]any) {
    keys := make([]string, 0, len(fields))
    for k := range fields {
        keys = append(keys, k)
    }
    sort.Strings(keys)

    attrs := make([]any, 0, 2*len(fields)+2)
    if id := requestIDFrom(ctx); id != "" {
        attrs = append(attrs, "request_id", id)
    }
    for _, k := range keys {
        attrs = append(attrs, k, fields[k])
    }
    s.logger.InfoContext(ctx, event, attrs...)
}
