package microgit

import (
	"strconv"
	"strings"
	"time"

	"github.com/mlaplanche/microgit/env"
	"github.com/mlaplanche/microgit/ginternals"
	"github.com/mlaplanche/microgit/ginternals/object"
)

// Default identity used for the author/committer fields of a commit
// when the corresponding environment variable isn't set.
const (
	DefaultIdentityName  = "Git Go User"
	DefaultIdentityEmail = "git-go@localhost"
)

// AuthorSignature resolves the author identity of a commit from
// GIT_AUTHOR_NAME, GIT_AUTHOR_EMAIL and GIT_AUTHOR_DATE
func AuthorSignature(e *env.Env) (object.Signature, error) {
	return signatureFromEnv(e, "GIT_AUTHOR_NAME", "GIT_AUTHOR_EMAIL", "GIT_AUTHOR_DATE")
}

// CommitterSignature resolves the committer identity of a commit from
// GIT_COMMITTER_NAME, GIT_COMMITTER_EMAIL and GIT_COMMITTER_DATE
func CommitterSignature(e *env.Env) (object.Signature, error) {
	return signatureFromEnv(e, "GIT_COMMITTER_NAME", "GIT_COMMITTER_EMAIL", "GIT_COMMITTER_DATE")
}

func signatureFromEnv(e *env.Env, nameVar, emailVar, dateVar string) (object.Signature, error) {
	name := e.GetOr(nameVar, DefaultIdentityName)
	email := e.GetOr(emailVar, DefaultIdentityEmail)
	t, err := parseIdentityDate(e.Get(dateVar))
	if err != nil {
		return object.Signature{}, err
	}
	return object.Signature{Name: name, Email: email, Time: t}, nil
}

// parseIdentityDate parses the "@<unix-seconds> <tz-offset>" form used
// by GIT_AUTHOR_DATE/GIT_COMMITTER_DATE. An empty value defaults to the
// current wall-clock time in +0000.
func parseIdentityDate(raw string) (time.Time, error) {
	if raw == "" {
		return time.Now().UTC(), nil
	}
	raw = strings.TrimPrefix(raw, "@")

	parts := strings.SplitN(raw, " ", 2)
	seconds, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		return time.Time{}, ginternals.NewError(ginternals.KindMalformed, "microgit.parseIdentityDate", raw, err)
	}

	tz := "+0000"
	if len(parts) == 2 {
		tz = parts[1]
	}
	loc, err := time.Parse("-0700", tz)
	if err != nil {
		return time.Time{}, ginternals.NewError(ginternals.KindMalformed, "microgit.parseIdentityDate", raw, err)
	}
	return time.Unix(seconds, 0).In(loc.Location()), nil
}
