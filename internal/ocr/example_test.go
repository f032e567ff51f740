package ocr_test

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"tessocr/internal/ocr"
	"tessocr/internal/source"
	"tessocr/internal/tesseract"
)

// Example demonstrates recognizing a remote image in image mode.
func Example() {
	// Load libtesseract from an explicit directory
	lib, err := tesseract.Load("/usr/local/lib")
	if err != nil {
		log.Fatalf("Failed to load tesseract: %v", err)
	}
	defer lib.Close()

	engine, err := ocr.New(lib, ocr.EngineConfig{
		DataDir:  "/usr/local/share/tessdata",
		Language: "eng",
	})
	if err != nil {
		log.Fatalf("Failed to initialize engine: %v", err)
	}
	defer engine.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	text, err := engine.URLToText(ctx, source.NewFetcher(nil), "https://example.com/price.png", 150)
	if err != nil {
		log.Fatalf("Failed to recognize image: %v", err)
	}

	fmt.Printf("Extracted text (%d characters):\n%s\n", len(text), text)
}

// ExampleEngine_FileToText demonstrates file mode, where tesseract decodes the file.
func ExampleEngine_FileToText() {
	lib, err := tesseract.Load("/usr/local/lib")
	if err != nil {
		log.Fatal(err)
	}
	defer lib.Close()

	engine, err := ocr.New(lib, ocr.EngineConfig{DataDir: "/usr/local/share/tessdata", Language: "eng"})
	if err != nil {
		log.Fatal(err)
	}
	defer engine.Close()

	// File mode returns a single line
	text, err := engine.FileToText("receipt.png")
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println(text)
}

// ExampleEngine_RecognizeImage demonstrates error handling around image mode.
func ExampleEngine_RecognizeImage() {
	lib, err := tesseract.Load("/usr/local/lib")
	if err != nil {
		if errors.Is(err, tesseract.ErrLibraryNotFound) {
			log.Fatalf("libtesseract.so not found, check --lib-path")
		}
		log.Fatal(err)
	}
	defer lib.Close()

	engine, err := ocr.New(lib, ocr.EngineConfig{DataDir: "/usr/local/share/tessdata", Language: "chi_sim"})
	if err != nil {
		log.Fatalf("Could not initialize tesseract: %v", err)
	}
	defer engine.Close()

	img, err := source.Open("label.png")
	if err != nil {
		log.Fatal(err)
	}

	result, err := engine.RecognizeImage(img, 150)
	switch {
	case errors.Is(err, ocr.ErrEmptyResult):
		log.Printf("Engine returned no text")
		return
	case errors.Is(err, ocr.ErrInvalidEncoding):
		log.Printf("Engine returned malformed text")
		return
	case err != nil:
		log.Fatal(err)
	}

	fmt.Printf("%dx%d: %s", result.Width, result.Height, result.Text)
}
