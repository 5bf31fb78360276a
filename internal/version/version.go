package version

import (
	"encoding/json"
	"log"
	"os"
	"sync"
)

// Version is the fallback when no version.json ships next to the binary.
var Version = "0.1.0"

type Info struct {
	Version string `json:"version"`
}

var loadOnce sync.Once

// Load reads version.json once and caches the result in Version.
func Load() Info {
	loadOnce.Do(func() {
		data, err := os.ReadFile("version.json")
		if err != nil {
			log.Printf("warning: could not read version.json: %v", err)
			return
		}
		var info Info
		if err := json.Unmarshal(data, &info); err != nil {
			log.Printf("warning: could not parse version.json: %v", err)
			return
		}
		if info.Version != "" {
			Version = info.Version
		}
	})
	return Info{Version: Version}
}
