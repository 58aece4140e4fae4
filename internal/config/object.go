package config

import (
	"encoding/json"
	"strings"
)

// Built-in configuration keys.
const (
	KeyProjectRoot       = "projectRoot"
	KeyTaskDirectory     = "taskDirectory"
	KeyTaskDirectoryPath = "taskDirectoryPath"
	KeyTaskScriptRoot    = "taskScriptRoot"
	KeyTaskName          = "taskName"
	KeyColors            = "colors"
	KeyGitRoot           = "gitRoot"
	KeyGitBranch         = "gitBranch"
)

// Object is the layered configuration tree handed to every task.
type Object map[string]any

// Get looks up a dot-separated path such as "Azure.SubscriptionId".
func (o Object) Get(path string) (any, bool) {
	var cur any = map[string]any(o)
	for _, part := range strings.Split(path, ".") {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		cur, ok = m[part]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}

// String returns the string at path, or "" when absent or not a string.
func (o Object) String(path string) string {
	v, _ := o.Get(path)
	s, _ := v.(string)
	return s
}

// JSON serializes the object.
func (o Object) JSON() ([]byte, error) {
	return json.Marshal(o)
}

func parseObject(data []byte) (Object, error) {
	obj := Object{}
	if err := json.Unmarshal(data, &obj); err != nil {
		return nil, err
	}
	return obj, nil
}
