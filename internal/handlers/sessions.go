package handlers

import (
	"context"
	"fmt"
	"net/http"

	"github.com/rschio/sunbed/internal/core/minutes"
	"github.com/rschio/sunbed/internal/web"
)

func (s *Server) OpenSession(w http.ResponseWriter, r *http.Request) {
	serveJSON(w, r, s, func(ctx context.Context, r *http.Request, req struct{}) (Session, error) {
		id, err := getID(r)
		if err != nil {
			return Session{}, err
		}

		sid, sess, err := s.sessions.Open(ctx, id, web.GetTime(ctx))
		if err != nil {
			return Session{}, err
		}
		return toSession(sid, sess), nil
	})
}

func (s *Server) GetSession(w http.ResponseWriter, r *http.Request) {
	s.serveSession(w, r, func(ctx context.Context, sess *minutes.Session) error {
		return nil
	})
}

func (s *Server) AdjustSession(w http.ResponseWriter, r *http.Request) {
	serveJSON(w, r, s, func(ctx context.Context, r *http.Request, req AdjustReq) (Session, error) {
		return s.withSession(ctx, r, func(ctx context.Context, sess *minutes.Session) error {
			switch req.Op {
			case "quick":
				return sess.QuickAdjust(req.Amount)
			case "add":
				return sess.Add(req.Amount)
			case "subtract":
				return sess.Subtract(req.Amount)
			}
			return fmt.Errorf("%w: unknown op %q", minutes.ErrInvalidAdjustment, req.Op)
		})
	})
}

func (s *Server) SaveSession(w http.ResponseWriter, r *http.Request) {
	s.serveSession(w, r, func(ctx context.Context, sess *minutes.Session) error {
		_, err := sess.Save(ctx, web.GetTime(ctx))
		return err
	})
}

func (s *Server) ResetSession(w http.ResponseWriter, r *http.Request) {
	s.serveSession(w, r, func(ctx context.Context, sess *minutes.Session) error {
		return sess.Reset()
	})
}

func (s *Server) RefreshSession(w http.ResponseWriter, r *http.Request) {
	s.serveSession(w, r, func(ctx context.Context, sess *minutes.Session) error {
		return sess.Refresh(ctx, web.GetTime(ctx))
	})
}

func (s *Server) CloseSession(w http.ResponseWriter, r *http.Request) {
	serveJSON(w, r, s, func(ctx context.Context, r *http.Request, req struct{}) (struct{}, error) {
		sid, err := getSessionID(r)
		if err != nil {
			return struct{}{}, err
		}
		return struct{}{}, s.sessions.Close(sid)
	})
}

// serveSession runs fn on the session of the request and responds with the
// session state after it. The plan state is read again before fn.
func (s *Server) serveSession(w http.ResponseWriter, r *http.Request, fn func(ctx context.Context, sess *minutes.Session) error) {
	serveJSON(w, r, s, func(ctx context.Context, r *http.Request, req struct{}) (Session, error) {
		return s.withSession(ctx, r, fn)
	})
}

func (s *Server) withSession(ctx context.Context, r *http.Request, fn func(ctx context.Context, sess *minutes.Session) error) (Session, error) {
	sid, err := getSessionID(r)
	if err != nil {
		return Session{}, err
	}

	now := web.GetTime(ctx)

	var view Session
	err = s.sessions.Do(sid, now, func(sess *minutes.Session) error {
		if err := sess.Refresh(ctx, now); err != nil {
			return err
		}
		if err := fn(ctx, sess); err != nil {
			return err
		}
		view = toSession(sid, sess)
		return nil
	})

	return view, err
}
