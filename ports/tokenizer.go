package ports

import "github.com/layer-3/trusttag/core"

// Tokenizer converts between sessions and signed tokens
type Tokenizer interface {
	SessionToAccessToken(session *core.Session) (string, error)
	AccessTokenToSession(token string) (*core.Session, error)
}
