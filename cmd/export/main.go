package main

import (
	"context"
	"flag"
	"io"
	"os"

	"github.com/shrimpsizemoose/trekker/logger"

	"github.com/shrimpsizemoose/semla/internal/app"
	"github.com/shrimpsizemoose/semla/internal/report"
)

func main() {
	var (
		configPath = flag.String("config", "config.toml", "Path to config file")
		professor  = flag.String("professor", "", "Professor id owning the course")
		course     = flag.String("course", "", "Course id")
		method     = flag.String("method", "", "Grading method: mean or curved (default from config)")
		out        = flag.String("out", "-", "Output file, - for stdout")
	)
	flag.Parse()

	if *professor == "" || *course == "" {
		flag.Usage()
		os.Exit(2)
	}

	service, err := app.NewService(*configPath)
	if err != nil {
		logger.Error.Fatalf("Failed to load config: %v", err)
	}
	defer service.Close()

	opts := service.Reports.Defaults()
	if *method != "" {
		opts.Method = *method
	}

	rep, err := service.Reports.CourseReport(context.Background(), *professor, *course, opts)
	if err != nil {
		logger.Error.Fatalf("Failed to build report: %v", err)
	}

	var w io.Writer = os.Stdout
	if *out != "-" {
		f, err := os.Create(*out)
		if err != nil {
			logger.Error.Fatalf("Failed to create %s: %v", *out, err)
		}
		defer f.Close()
		w = f
	}

	if err := report.WriteCSV(w, rep); err != nil {
		logger.Error.Fatalf("Failed to write report: %v", err)
	}
	logger.Info.Printf("Exported %d students of course %s (%s)", len(rep.Students), *course, opts.Method)
}
