// Command structanalysis is built as a Go plugin, one artifact per language:
//
//	go build -buildmode=plugin -ldflags "-X main.language=kotlin" \
//	    -o target/release/libcoco_kotlin.so ./plugins/structanalysis
package main

import (
	"github.com/ritzau/coco/pkg/analysis/api"
	"github.com/ritzau/coco/pkg/structanalysis"
)

// language is set at link time
var language = "java"

// ABIVersion is checked by the host before Plugin is called
var ABIVersion = api.ABIVersion

// Plugin is the entry point looked up by the host
func Plugin() api.Analyzer {
	return structanalysis.New(language)
}

func main() {}
