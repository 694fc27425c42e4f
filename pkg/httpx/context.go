package httpx

import (
	"context"

	"github.com/aixasz/AixaszSampleProject/pkg/jwtx"
)

type ctxKey string

const (
	ctxKeySubject ctxKey = "subject"
	ctxKeyClaims  ctxKey = "claims"
)

func contextWithClaims(ctx context.Context, c jwtx.Claims) context.Context {
	ctx = context.WithValue(ctx, ctxKeySubject, c.Subject)
	return context.WithValue(ctx, ctxKeyClaims, c)
}

// ClaimsFrom returns the verified bearer token claims, if any.
func ClaimsFrom(ctx context.Context) (jwtx.Claims, bool) {
	c, ok := ctx.Value(ctxKeyClaims).(jwtx.Claims)
	return c, ok
}

// SubjectFrom returns the "sub" of the verified bearer token.
func SubjectFrom(ctx context.Context) string {
	s, _ := ctx.Value(ctxKeySubject).(string)
	return s
}

func scopesFromCtx(ctx context.Context) []string {
	if c, ok := ClaimsFrom(ctx); ok {
		return c.Scopes()
	}
	return nil
}
