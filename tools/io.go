package tools

import (
	"os"
	"path/filepath"

	"github.com/golang/glog"
)

// GetRootFolder returns the folder clouds are served from when none is configured
func GetRootFolder() string {
	rootFromEnv := os.Getenv("POTREE_STREAMER_WORKDIR")
	if rootFromEnv != "" {
		return rootFromEnv
	}
	ex, err := os.Executable()
	if err != nil {
		glog.Fatal("cannot retrieve executable directory", err)
	}
	return filepath.Dir(ex)
}

func CreateDirectoryIfDoesNotExist(directory string) error {
	if _, err := os.Stat(directory); os.IsNotExist(err) {
		err := os.MkdirAll(directory, 0777)
		if err != nil {
			return err
		}
	}
	return nil
}
