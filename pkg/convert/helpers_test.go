package convert

import "github.com/chazu/dxfnest/pkg/nesting"

func validateJSON(s string) error { return nesting.ValidateJSON([]byte(s)) }
