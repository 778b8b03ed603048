package auth

import (
	"time"

	"github.com/bingLAN/table_view/common"
	cmap "github.com/orcaman/concurrent-map"
)

type session struct {
	user    common.SessionUser
	created time.Time
}

// Sessions maps session ids to logged in users. Sessions live until logout or
// process exit.
type Sessions struct {
	sessionMap cmap.ConcurrentMap // id---*session
	now        func() time.Time
}

// NewSessions returns an empty in-memory store.
func NewSessions() *Sessions {
	return &Sessions{sessionMap: cmap.New(), now: time.Now}
}

// Create starts a session for user and returns its id.
func (s *Sessions) Create(user common.SessionUser) string {
	id := common.GetUUID()
	s.sessionMap.Set(id, &session{user: user, created: s.now()})
	return id
}

// Get returns the user behind session id.
func (s *Sessions) Get(id string) (common.SessionUser, bool) {
	if id == "" {
		return common.SessionUser{}, false
	}
	v, ok := s.sessionMap.Get(id)
	if !ok {
		return common.SessionUser{}, false
	}
	return v.(*session).user, true
}

// Delete ends a session; unknown ids are ignored.
func (s *Sessions) Delete(id string) {
	s.sessionMap.Remove(id)
}

// Count is the number of live sessions.
func (s *Sessions) Count() int {
	return s.sessionMap.Count()
}
