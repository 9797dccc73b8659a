// Package interceptors holds the planner's gRPC server interceptors.
package interceptors

import (
	"context"
	"log"
	"strings"
	"time"

	grpcmeta "github.com/rallypoint/rallypoint/internal/services/planner/api/grpc/metadata"
	"github.com/rallypoint/rallypoint/internal/services/planner/api/grpc/planner"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"google.golang.org/grpc"
	"google.golang.org/grpc/status"
)

type eventIDGetter interface {
	GetEventID() string
}

var readMethods = map[string]struct{}{
	planner.FullMethod(planner.MethodListMembers):   {},
	planner.FullMethod(planner.MethodGetPlanStatus): {},
	planner.FullMethod(planner.MethodListEvents):    {},
	planner.FullMethod(planner.MethodGetEvent):      {},
}

// AccessLogInterceptor logs one line per unary call and tags the active span
// with the request id and the addressed event.
func AccessLogInterceptor(logf func(string, ...any)) grpc.UnaryServerInterceptor {
	if logf == nil {
		logf = log.Printf
	}
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		started := time.Now()
		requestID := grpcmeta.RequestIDFromContext(ctx)
		eventID := extractEventID(req)

		span := trace.SpanFromContext(ctx)
		span.SetAttributes(
			attribute.String("rallypoint.request_id", requestID),
			attribute.String("planner.event_id", eventID),
		)

		resp, err := handler(ctx, req)

		var traceID string
		if sc := span.SpanContext(); sc.IsValid() {
			traceID = sc.TraceID().String()
		}
		logf("planner rpc method=%s kind=%s code=%s duration=%s request_id=%s event_id=%s trace_id=%s",
			info.FullMethod,
			classifyMethodKind(info.FullMethod),
			status.Code(err),
			time.Since(started).Round(time.Microsecond),
			requestID,
			eventID,
			traceID,
		)
		return resp, err
	}
}

func extractEventID(req any) string {
	getter, ok := req.(eventIDGetter)
	if !ok {
		return ""
	}
	return strings.TrimSpace(getter.GetEventID())
}

func classifyMethodKind(fullMethod string) string {
	if _, ok := readMethods[fullMethod]; ok {
		return "read"
	}
	return "write"
}
