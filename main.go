package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font/gofont/goregular"
)

func main() {
	args, err := parseArguments()
	if err != nil {
		log.Fatalf("arguments: %v", err)
	}

	ctx, cancel := withTimeout(context.Background(), args.Timeout)
	defer cancel()

	if err := run(ctx, args); err != nil {
		log.Fatalf("error: %v", err)
	}
	log.Printf("saved %s", args.OutputFile)
}

func run(ctx context.Context, args *Arguments) error {
	act, err := ReadActivity(args.GpxFile)
	if err != nil {
		return err
	}
	log.Printf("%s: %d points, lon %.4f..%.4f lat %.4f..%.4f",
		act.Name, len(act.Points),
		act.Bounds.MinLon, act.Bounds.MaxLon, act.Bounds.MinLat, act.Bounds.MaxLat)

	font, err := truetype.Parse(goregular.TTF)
	if err != nil {
		return fmt.Errorf("parse font: %w", err)
	}

	bars := NewBars(0, 0)
	defer bars.Done()

	scene, err := BuildScene(ctx, act, args, font, bars)
	if err != nil {
		return err
	}

	if act.HasTime() {
		scene.Elapsed = Elapsed(act.Points)
		speeds, err := ComputeSpeeds(act.Points)
		if err != nil {
			return err
		}
		speeds = SmoothSpeeds(speeds, scene.Elapsed, args.Smooth)
		scene.Lo, scene.Hi = ClampSpeeds(speeds, args.VMin, args.VMax)
		scene.Speeds = speeds
	} else if !args.NoTime {
		return fmt.Errorf("GPX has points without timestamps (use -no-time to render anyway)")
	}

	if args.Animate {
		return writeAnimation(ctx, scene, bars, args.OutputFile)
	}
	return writeStatic(scene, args.OutputFile)
}

func writeStatic(scene *Scene, outPath string) error {
	img := scene.RenderStatic()
	if err := os.MkdirAll(nonEmptyDir(outPath), 0o755); err != nil {
		return err
	}
	if err := gg.SavePNG(outPath, img); err != nil {
		return fmt.Errorf("save png: %w", err)
	}
	return nil
}

func writeAnimation(ctx context.Context, scene *Scene, bars *Bars, outPath string) error {
	g, err := RenderAnimation(ctx, scene, bars)
	if err != nil {
		return fmt.Errorf("render animation: %w", err)
	}
	tmp := outPath + ".part"
	f, err := os.Create(tmp)
	if err != nil {
		return err
	}
	if err := writeGIF(f, g); err != nil {
		f.Close()
		_ = os.Remove(tmp)
		return fmt.Errorf("encode gif: %w", err)
	}
	if err := f.Close(); err != nil {
		return err
	}
	return os.Rename(tmp, outPath)
}

func nonEmptyDir(path string) string {
	dir := filepath.Dir(path)
	if dir == "" {
		return "."
	}
	return dir
}
