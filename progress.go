package main

import (
	"time"

	"github.com/schollz/progressbar/v3"
)

type Bars struct {
	Tiles  *progressbar.ProgressBar
	Frames *progressbar.ProgressBar
}

func newBar(total int, desc string) *progressbar.ProgressBar {
	return progressbar.NewOptions(total,
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "=",
			SaucerHead:    ">",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}),
		progressbar.OptionSetDescription(desc),
		progressbar.OptionShowCount(),
		progressbar.OptionSetPredictTime(true),
		progressbar.OptionThrottle(100*time.Millisecond),
	)
}

func NewBars(totalTiles, totalFrames int) *Bars {
	return &Bars{
		Tiles:  newBar(totalTiles, "[tiles] downloading"),
		Frames: newBar(totalFrames, "[frames] rendering"),
	}
}

func (b *Bars) IncTile()        { _ = b.Tiles.Add(1) }
func (b *Bars) IncFrame()       { _ = b.Frames.Add(1) }
func (b *Bars) SetFrames(n int) { b.Frames.ChangeMax(n) }

func (b *Bars) Done() {
	_ = b.Tiles.Finish()
	_ = b.Frames.Finish()
}
