package app

import (
	"context"
	"time"
)

// WaitPlan découpe l'attente jusqu'à l'ouverture des inscriptions.
// Sleep s'écoule d'abord; si PreRequest est vrai, la pré-requête part ensuite
// et Remainder couvre le reste jusqu'à l'instant d'ouverture.
type WaitPlan struct {
	Sleep      time.Duration
	PreRequest bool
	Remainder  time.Duration
}

func (p WaitPlan) Total() time.Duration {
	return p.Sleep + p.Remainder
}

// PlanWait calcule le plan d'attente pour une ouverture à opensAt, vue depuis
// now, avec une avance de pré-requête lead.
//
//   - ouverture passée: aucun sommeil, pas de pré-requête, boucle immédiate;
//   - attente inférieure ou égale à lead: pas assez de marge pour une
//     pré-requête séparée, on dort toute l'attente;
//   - sinon: sommeil de wait-lead, pré-requête, puis sommeil de lead.
func PlanWait(now, opensAt time.Time, lead time.Duration) WaitPlan {
	wait := opensAt.Sub(now)
	if wait <= 0 {
		return WaitPlan{}
	}
	if lead <= 0 || wait <= lead {
		return WaitPlan{Sleep: wait}
	}
	return WaitPlan{Sleep: wait - lead, PreRequest: true, Remainder: lead}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
