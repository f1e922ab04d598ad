package celengine

import (
	"fmt"
	"sync"

	"github.com/google/cel-go/cel"
)

// Small CEL wrapper used for badge criteria expressions. Environments are
// keyed by the attribute set so repeated evaluations reuse the compiled
// declarations.
var envCache = sync.Map{}

func BuildEnvFromAttributes(attrs map[string]interface{}) (*cel.Env, error) {
	var variables []cel.EnvOption

	for key, val := range attrs {
		switch val.(type) {
		case string:
			variables = append(variables, cel.Variable(key, cel.StringType))
		case int, int64:
			variables = append(variables, cel.Variable(key, cel.IntType))
		case float64, float32:
			variables = append(variables, cel.Variable(key, cel.DoubleType))
		case bool:
			variables = append(variables, cel.Variable(key, cel.BoolType))
		case map[string]interface{}:
			variables = append(variables, cel.Variable(key, cel.MapType(cel.StringType, cel.DynType)))
		default:
			variables = append(variables, cel.Variable(key, cel.DynType))
		}
	}

	return cel.NewEnv(variables...)
}

func getOrBuildEnv(cacheKey string, attrs map[string]interface{}) (*cel.Env, error) {
	if v, ok := envCache.Load(cacheKey); ok {
		return v.(*cel.Env), nil
	}

	env, err := BuildEnvFromAttributes(attrs)
	if err == nil {
		envCache.Store(cacheKey, env)
	}
	return env, err
}

// EvaluateBool compiles and runs a boolean CEL expression against attrs.
func EvaluateBool(cacheKey, expression string, attrs map[string]interface{}) (bool, error) {
	env, err := getOrBuildEnv(cacheKey, attrs)
	if err != nil {
		return false, err
	}

	ast, issues := env.Compile(expression)
	if issues != nil && issues.Err() != nil {
		return false, fmt.Errorf("compile failed: %w", issues.Err())
	}

	prg, err := env.Program(ast)
	if err != nil {
		return false, err
	}

	val, _, err := prg.Eval(attrs)
	if err != nil {
		return false, fmt.Errorf("eval failed: %w", err)
	}

	matched, ok := val.Value().(bool)
	if !ok {
		return false, fmt.Errorf("expression did not return boolean")
	}
	return matched, nil
}
