package extrude

import (
	"fmt"

	"github.com/chazu/pcbsolid/pkg/model"
)

// verify checks the Onext and Lnext pattern of every vertex and side face.
func (p *pieceTopo) verify(a *model.Arena) error {
	check := func(what string, k int, got, want model.EdgeRef) error {
		if got != want {
			return fmt.Errorf("%w: %s at vertex %d: got %v, want %v", ErrTopology, what, k, got, want)
		}
		return nil
	}
	for k, r := range p.owner {
		pv, nx := r.prev(k), r.next(k)
		b, t, s := p.b[k], p.t[k], p.s[k]
		bp, tp := p.b[pv].Sym(), p.t[pv].Sym()

		var checks []struct {
			what      string
			got, want model.EdgeRef
		}
		add := func(what string, got, want model.EdgeRef) {
			checks = append(checks, struct {
				what      string
				got, want model.EdgeRef
			}{what, got, want})
		}
		if !p.invert {
			add("Onext(b)", a.Onext(b), s)
			add("Onext(s)", a.Onext(s), bp)
			add("Onext(Sym bprev)", a.Onext(bp), b)
			add("Onext(t)", a.Onext(t), tp)
			add("Onext(Sym tprev)", a.Onext(tp), s.Sym())
			add("Onext(Sym s)", a.Onext(s.Sym()), t)
			add("Lnext(Sym s)", a.Lnext(s.Sym()), b)
			add("Lnext(b)", a.Lnext(b), p.s[nx])
			add("Lnext(s next)", a.Lnext(p.s[nx]), t.Sym())
			add("Lnext(Sym t)", a.Lnext(t.Sym()), s.Sym())
			add("Lnext(t)", a.Lnext(t), p.t[nx])
		} else {
			add("Onext(b)", a.Onext(b), bp)
			add("Onext(Sym bprev)", a.Onext(bp), s)
			add("Onext(s)", a.Onext(s), b)
			add("Onext(t)", a.Onext(t), s.Sym())
			add("Onext(Sym s)", a.Onext(s.Sym()), tp)
			add("Onext(Sym tprev)", a.Onext(tp), t)
			add("Lnext(s)", a.Lnext(s), t)
			add("Lnext(t)", a.Lnext(t), p.s[nx].Sym())
			add("Lnext(Sym s next)", a.Lnext(p.s[nx].Sym()), b.Sym())
			add("Lnext(Sym b)", a.Lnext(b.Sym()), s)
			add("Lnext(b)", a.Lnext(b), p.b[nx])
		}
		for _, c := range checks {
			if err := check(c.what, k, c.got, c.want); err != nil {
				return err
			}
		}
		if a.Left(b) == nil || a.Right(b) == nil || a.Left(s) == nil || a.Right(s) == nil {
			return fmt.Errorf("%w: unclaimed edge at vertex %d", ErrTopology, k)
		}
	}
	return nil
}
