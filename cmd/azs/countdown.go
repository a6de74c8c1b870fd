package main

import (
	"io"
	"time"

	"github.com/vbauerster/mpb/v8"
	"github.com/vbauerster/mpb/v8/decor"
)

// countdownMin évite d'afficher une barre pour des attentes trop courtes.
const countdownMin = 2 * time.Second

// countdown renvoie le hook OnWait du Sniper: une barre de progression qui
// court jusqu'à l'instant d'ouverture. Purement cosmétique, la barre vit dans
// sa propre goroutine et le timing du snipe ne dépend jamais d'elle.
func countdown(out io.Writer) func(opensAt time.Time, wait time.Duration) {
	return func(opensAt time.Time, wait time.Duration) {
		if wait < countdownMin {
			return
		}
		go func() {
			p := mpb.New(mpb.WithOutput(out), mpb.WithWidth(42))
			name := "Waiting"
			total := wait.Milliseconds()
			bar := p.New(total,
				mpb.BarStyle().Lbound("╢").Filler("█").Tip("█").Padding("░").Rbound("╟"),
				mpb.PrependDecorators(
					decor.Name(name, decor.WC{W: len(name) + 1, C: decor.DindentRight}),
				),
				mpb.AppendDecorators(
					decor.Percentage(decor.WC{W: 5}),
				),
			)

			start := time.Now()
			ticker := time.NewTicker(100 * time.Millisecond)
			defer ticker.Stop()
			for range ticker.C {
				elapsed := time.Since(start).Milliseconds()
				if elapsed >= total {
					bar.SetCurrent(total)
					break
				}
				bar.SetCurrent(elapsed)
			}
			p.Wait()
		}()
	}
}
