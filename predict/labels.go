package predict

import (
	"bufio"
	"encoding/json"
	"io/ioutil"
	"os"
	"strings"

	"github.com/Code-r4Life/Object-Detection-YOLO/datastructures"
	log "github.com/sirupsen/logrus"
)

// Labels maps class ids to class names. It is fixed at load time.
type Labels []string

// Name resolves a class id. An unknown id means the labels don't belong to
// the model that produced the id.
func (l Labels) Name(id int) (string, error) {
	if id < 0 || id >= len(l) {
		return "", LoadError(nil, "class id %d not in labels (%d classes), model and labels mismatch", id, len(l))
	}
	return l[id], nil
}

// LoadLabels reads a labels file with one class name per line; the line
// index is the class id.
func LoadLabels(path string) (Labels, error) {
	var labels Labels
	file, err := os.Open(path)
	if err != nil {
		log.Debug("[Loading Labels] Couldn't open file: ", err)
		return nil, LoadError(err, "couldn't open labels %s", path)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		labels = append(labels, strings.TrimSpace(scanner.Text()))
	}
	if err := scanner.Err(); err != nil {
		log.Debug("[Loading Labels] Failed to read labels file: ", err.Error())
		return nil, LoadError(err, "couldn't read labels %s", path)
	}
	// blank lines keep their class id, only trailing ones are dropped
	for len(labels) > 0 && labels[len(labels)-1] == "" {
		labels = labels[:len(labels)-1]
	}
	if len(labels) == 0 {
		return nil, LoadError(nil, "labels file %s is empty", path)
	}

	return labels, nil
}

// LoadModelInfo reads the model_info.json that ships next to a model.
// Backends keeping their own settings in the same file pass them as extra;
// the file is decoded into each of them too.
func LoadModelInfo(path string, extra ...interface{}) (datastructures.ModelInfo, error) {
	var info datastructures.ModelInfo
	data, err := ioutil.ReadFile(path)
	if err != nil {
		log.Debug("[Main] Couldn't read model info: ", err.Error())
		return info, LoadError(err, "couldn't read model info %s", path)
	}
	for _, v := range append([]interface{}{&info}, extra...) {
		if err := json.Unmarshal(data, v); err != nil {
			log.Debug("[Main] Couldn't parse model info: ", err.Error())
			return info, LoadError(err, "couldn't parse model info %s", path)
		}
	}
	return info, nil
}
