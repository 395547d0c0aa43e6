package vm

import (
	"github.com/roselang/rose/pkg/table"
	"github.com/roselang/rose/pkg/value"
)

// methodsOf and fieldsOf recover the concrete *table.Table hiding
// behind Class.Methods and Instance.Fields, which are typed `any` in
// pkg/value to avoid an import cycle (pkg/table already imports
// pkg/value for its key/value types).
func (v *VM) methodsOf(c *value.Class) *table.Table { return c.Methods.(*table.Table) }
func (v *VM) fieldsOf(i *value.Instance) *table.Table { return i.Fields.(*table.Table) }
