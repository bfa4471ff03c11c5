package http

import (
	"bytes"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/MikeRez0/orderpay/internal/core/domain"
	"github.com/MikeRez0/orderpay/internal/core/port"
	"github.com/gin-gonic/gin"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

const authHeaderKey = "Authorization"
const authType = "Bearer"
const userPayloadKey = "user_payload"

const (
	IdempotencyKeyHeader = "Idempotency-Key"
	ReplayedHeader       = "Idempotent-Replayed"
)

func authCheck(h *Handler, tokenService port.TokenService) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		header := ctx.Request.Header.Get(authHeaderKey)
		if len(header) == 0 {
			h.handleAbort(ctx, domain.ErrEmptyAuthorizationHeader)
			return
		}

		words := strings.Fields(header)
		if len(words) != 2 {
			h.handleAbort(ctx, domain.ErrInvalidAuthorizationHeader)
			return
		}
		if !strings.EqualFold(words[0], authType) {
			h.handleAbort(ctx, domain.ErrInvalidAuthorizationType)
			return
		}
		token := words[1]
		payload, err := tokenService.VerifyToken(token)
		if err != nil {
			h.handleAbort(ctx, domain.ErrInvalidToken)
			return
		}

		ctx.Set(userPayloadKey, payload)

		ctx.Next()
	}
}

func requireRole(h *Handler, role string) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		if getAuthPayload(ctx).Role != role {
			h.handleAbort(ctx, domain.ErrForbidden)
			return
		}
		ctx.Next()
	}
}

func getAuthPayload(ctx *gin.Context) *port.TokenPayload {
	return ctx.MustGet(userPayloadKey).(*port.TokenPayload)
}

type storedResponse struct {
	status int
	header http.Header
	body   []byte
}

// recordingWriter passes writes through and keeps a copy for replay.
type recordingWriter struct {
	gin.ResponseWriter
	body bytes.Buffer
}

func (w *recordingWriter) Write(b []byte) (int, error) {
	w.body.Write(b)
	return w.ResponseWriter.Write(b)
}

func (w *recordingWriter) WriteString(s string) (int, error) {
	w.body.WriteString(s)
	return w.ResponseWriter.WriteString(s)
}

// Idempotency replays the response of a POST carrying an Idempotency-Key.
// Keys are scoped per caller and route. Concurrent requests with one key run
// the handler once; server errors are not kept, so they can be retried.
type Idempotency struct {
	group singleflight.Group
	cache *expirable.LRU[string, *storedResponse]
}

func NewIdempotency(size int, ttl time.Duration) *Idempotency {
	return &Idempotency{
		cache: expirable.NewLRU[string, *storedResponse](size, nil, ttl),
	}
}

func (i *Idempotency) Middleware(logger *zap.Logger) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		key := ctx.GetHeader(IdempotencyKeyHeader)
		if key == "" || ctx.Request.Method != http.MethodPost {
			ctx.Next()
			return
		}
		var caller uint64
		if v, ok := ctx.Get(userPayloadKey); ok {
			caller = v.(*port.TokenPayload).CustomerID
		}
		scoped := fmt.Sprintf("%d|%s|%s", caller, ctx.Request.URL.Path, key)

		if resp, ok := i.cache.Get(scoped); ok {
			replay(ctx, resp)
			return
		}

		leader := false
		v, _, _ := i.group.Do(scoped, func() (any, error) {
			// a twin may have finished between the lookup above and Do
			if resp, ok := i.cache.Get(scoped); ok {
				return resp, nil
			}
			leader = true
			rec := &recordingWriter{ResponseWriter: ctx.Writer}
			ctx.Writer = rec
			ctx.Next()
			ctx.Writer = rec.ResponseWriter

			resp := &storedResponse{
				status: rec.Status(),
				header: rec.Header().Clone(),
				body:   rec.body.Bytes(),
			}
			if resp.status < http.StatusInternalServerError {
				i.cache.Add(scoped, resp)
			}
			return resp, nil
		})
		if !leader {
			logger.Debug("Idempotent request joined in-flight twin", zap.String("key", key))
			replay(ctx, v.(*storedResponse))
		}
	}
}

func replay(ctx *gin.Context, resp *storedResponse) {
	for k, vals := range resp.header {
		ctx.Writer.Header()[k] = append([]string(nil), vals...)
	}
	ctx.Writer.Header().Set(ReplayedHeader, "true")
	ctx.Status(resp.status)
	_, _ = ctx.Writer.Write(resp.body)
	ctx.Abort()
}
