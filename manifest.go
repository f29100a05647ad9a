package main

import (
	"io/ioutil"
	"os"
	"path/filepath"

	"github.com/ztrue/tracerr"
	"gopkg.in/yaml.v2"
)

const manifestFile = "PLC Project Information"

type project struct {
	Package       string `yaml:"Package"`
	Entry         string `yaml:"Entry,omitempty"`
	Target        string `yaml:"Target,omitempty"`
	Output        string `yaml:"Output,omitempty"`
	LogLevel      string `yaml:"LogLevel,omitempty"`
	DecimalPlaces int32  `yaml:"DecimalPlaces,omitempty"`
}

func newProject(name string) project {
	return project{
		Package: name,
		Entry:   name + ".plc",
		Target:  "java",
	}
}

func writeProject(dir string, p project) error {
	out, err := yaml.Marshal(p)
	if err != nil {
		return tracerr.Wrap(err)
	}

	return tracerr.Wrap(ioutil.WriteFile(filepath.Join(dir, manifestFile), out, 0644))
}

// readProject loads the manifest in dir. A directory without one yields the
// zero project and found == false.
func readProject(dir string) (p project, found bool, err error) {
	data, err := ioutil.ReadFile(filepath.Join(dir, manifestFile))
	if os.IsNotExist(err) {
		return project{}, false, nil
	}
	if err != nil {
		return project{}, false, tracerr.Wrap(err)
	}

	err = yaml.Unmarshal(data, &p)
	if err != nil {
		return project{}, false, tracerr.Errorf("error reading %s: %s", manifestFile, err)
	}
	return p, true, nil
}
