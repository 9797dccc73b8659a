// Package metadata defines the headers that carry request context and the
// calling member across planner gRPC boundaries.
package metadata

import (
	"context"
	"strings"

	"github.com/rallypoint/rallypoint/internal/platform/id"
	"github.com/rallypoint/rallypoint/internal/services/planner/identity"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

// RequestIDHeader is the gRPC metadata key for request correlation IDs.
const RequestIDHeader = "x-rallypoint-request-id"

// AccountIDHeader names the calling account.
const AccountIDHeader = "x-rallypoint-account-id"

// MemberSourceHeader and MemberExternalIDHeader name a calling external
// member. They are ignored when AccountIDHeader is present.
const (
	MemberSourceHeader     = "x-rallypoint-member-source"
	MemberExternalIDHeader = "x-rallypoint-member-external-id"
)

// ChannelIDHeader names the chat channel a request originates from. Queries
// without a member use it as a channel-wide viewer.
const ChannelIDHeader = "x-rallypoint-channel-id"

// LocaleHeader carries the caller's preferred locales for error messages.
const LocaleHeader = "accept-language"

type contextKey string

const requestIDContextKey contextKey = "rallypoint-request-id"

// RequestIDFromContext returns the request ID stored in context.
func RequestIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	value, _ := ctx.Value(requestIDContextKey).(string)
	return value
}

// WithRequestID stores the request ID in context.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, requestIDContextKey, requestID)
}

// ActorFromContext returns the raw calling member from incoming metadata.
// The zero RawRef means no member was named.
func ActorFromContext(ctx context.Context) identity.RawRef {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return identity.RawRef{}
	}
	if accountID := FirstMetadataValue(md, AccountIDHeader); accountID != "" {
		return identity.RawRef{AccountID: accountID}
	}
	return identity.RawRef{
		Source:     FirstMetadataValue(md, MemberSourceHeader),
		ExternalID: FirstMetadataValue(md, MemberExternalIDHeader),
	}
}

// ChannelIDFromContext returns the channel ID from incoming metadata.
func ChannelIDFromContext(ctx context.Context) string {
	return metadataValueFromIncomingContext(ctx, ChannelIDHeader)
}

// LocaleFromContext returns the accept-language value from incoming metadata.
func LocaleFromContext(ctx context.Context) string {
	return metadataValueFromIncomingContext(ctx, LocaleHeader)
}

// WithActor returns a context carrying the member as outgoing metadata.
func WithActor(ctx context.Context, actor identity.RawRef) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	if accountID := strings.TrimSpace(actor.AccountID); accountID != "" {
		return metadata.AppendToOutgoingContext(ctx, AccountIDHeader, accountID)
	}
	source := strings.TrimSpace(actor.Source)
	externalID := strings.TrimSpace(actor.ExternalID)
	if source == "" && externalID == "" {
		return ctx
	}
	return metadata.AppendToOutgoingContext(ctx, MemberSourceHeader, source, MemberExternalIDHeader, externalID)
}

// WithChannelID returns a context carrying the channel as outgoing metadata.
func WithChannelID(ctx context.Context, channelID string) context.Context {
	return appendOutgoing(ctx, ChannelIDHeader, channelID)
}

// WithLocale returns a context carrying the preferred locale as outgoing metadata.
func WithLocale(ctx context.Context, locale string) context.Context {
	return appendOutgoing(ctx, LocaleHeader, locale)
}

// WithOutgoingRequestID returns a context carrying the request ID as outgoing metadata.
func WithOutgoingRequestID(ctx context.Context, requestID string) context.Context {
	return appendOutgoing(ctx, RequestIDHeader, requestID)
}

func appendOutgoing(ctx context.Context, key, value string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	value = strings.TrimSpace(value)
	if value == "" {
		return ctx
	}
	return metadata.AppendToOutgoingContext(ctx, key, value)
}

// IsPrintableASCII reports whether a string contains only printable ASCII characters.
func IsPrintableASCII(value string) bool {
	if value == "" {
		return false
	}
	for i := 0; i < len(value); i++ {
		if value[i] < 0x20 || value[i] > 0x7e {
			return false
		}
	}
	return true
}

// FirstMetadataValue returns the first printable ASCII metadata value for a key.
func FirstMetadataValue(md metadata.MD, key string) string {
	if len(md) == 0 {
		return ""
	}
	for mdKey, values := range md {
		if !strings.EqualFold(mdKey, key) {
			continue
		}
		for _, value := range values {
			if IsPrintableASCII(value) {
				return value
			}
		}
	}
	return ""
}

// UnaryServerInterceptor guarantees every unary call carries a request ID,
// generating one when the caller sent none, and echoes it as a response header.
func UnaryServerInterceptor(idGenerator func() (string, error)) grpc.UnaryServerInterceptor {
	if idGenerator == nil {
		idGenerator = id.NewID
	}
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		updatedCtx, requestID, err := ensureRequestID(ctx, idGenerator)
		if err != nil {
			return nil, status.Errorf(codes.Internal, "ensure request metadata: %v", err)
		}
		if err := grpc.SetHeader(updatedCtx, metadata.Pairs(RequestIDHeader, requestID)); err != nil {
			return nil, status.Errorf(codes.Internal, "set response metadata: %v", err)
		}
		return handler(updatedCtx, req)
	}
}

func ensureRequestID(ctx context.Context, idGenerator func() (string, error)) (context.Context, string, error) {
	requestID := metadataValueFromIncomingContext(ctx, RequestIDHeader)
	if requestID == "" {
		generated, err := idGenerator()
		if err != nil {
			return nil, "", err
		}
		requestID = generated
	}
	return WithRequestID(ctx, requestID), requestID, nil
}

func metadataValueFromIncomingContext(ctx context.Context, header string) string {
	if ctx == nil {
		return ""
	}
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return ""
	}
	return FirstMetadataValue(md, header)
}
