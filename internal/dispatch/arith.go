package dispatch

import (
	"math"

	"ember/internal/builtin"
	"ember/internal/bytecode"
	"ember/internal/class"
	"ember/internal/cursor"
	"ember/internal/errors"
	"ember/internal/gc"
	"ember/internal/object"
)

// operatorOverload maps a binary opcode to the class.Operator a non-numeric,
// non-string receiver falls back to.
var operatorOverload = map[bytecode.Op]class.Operator{
	bytecode.Add: class.OpAdd, bytecode.Sub: class.OpSub, bytecode.Mul: class.OpMul,
	bytecode.Div: class.OpDiv, bytecode.Mod: class.OpMod, bytecode.Pow: class.OpPow,
	bytecode.Eq: class.OpEq, bytecode.Ne: class.OpNe,
	bytecode.Lt: class.OpLt, bytecode.Gt: class.OpGt, bytecode.Le: class.OpLe, bytecode.Ge: class.OpGe,
	bytecode.Band: class.OpBand, bytecode.Bor: class.OpBor, bytecode.Xor: class.OpXor,
	bytecode.ShiftLeft: class.OpShl, bytecode.ShiftRight: class.OpShr,
}

// unaryOverload maps a unary opcode to its class.Operator fallback.
var unaryOverload = map[bytecode.Op]class.Operator{
	bytecode.Neg: class.OpNeg, bytecode.Pos: class.OpPos,
	bytecode.Compl: class.OpCompl, bytecode.Inc: class.OpInc, bytecode.Dec: class.OpDec,
}

// numberOf promotes a Number or Boolean datum (true == 1) to a float64, matching the
// language's arithmetic-on-booleans rule.
func numberOf(d gc.Data) (float64, bool) {
	switch v := d.(type) {
	case *object.NumberData:
		return v.Value, true
	case *object.BooleanData:
		if v.Value {
			return 1, true
		}
		return 0, true
	default:
		return 0, false
	}
}

func isScalarKind(d gc.Data) bool {
	switch d.(type) {
	case *object.NoneData, *object.NullData, *object.BooleanData, *object.NumberData:
		return true
	default:
		return false
	}
}

func stringOrder(a, b string) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

// compareResult turns a three-way comparison into the boolean an Eq/Ne/Lt/Gt/Le/Ge
// opcode pushes.
func compareResult(op bytecode.Op, cmp int) bool {
	switch op {
	case bytecode.Eq:
		return cmp == 0
	case bytecode.Ne:
		return cmp != 0
	case bytecode.Lt:
		return cmp < 0
	case bytecode.Gt:
		return cmp > 0
	case bytecode.Le:
		return cmp <= 0
	case bytecode.Ge:
		return cmp >= 0
	default:
		return false
	}
}

// binaryOp implements every two-operand arithmetic/comparison/bitwise opcode. The
// operator dispatch contract: built-in typed operands (String concatenation/ordering,
// Number/Boolean/None/Null scalar equality, Number arithmetic) get a direct internal
// handler; anything else falls back to the receiver's class operator table, raising
// NoSuchOperator if it has none. STRICT_EQ/STRICT_NE always bypass overloads entirely.
func (d *Dispatcher) binaryOp(c *cursor.Cursor, op bytecode.Op) (bool, error) {
	right, ok := c.Pop()
	if !ok {
		return false, cursor.ErrStackUnderflow
	}
	left, ok := c.Pop()
	if !ok {
		return false, cursor.ErrStackUnderflow
	}

	if op == bytecode.StrictEq || op == bytecode.StrictNe {
		eq := object.StrictEqual(left.Data(), right.Data())
		if op == bytecode.StrictNe {
			eq = !eq
		}
		c.Push(d.boolean(eq))
		return true, nil
	}

	if ls, lok := left.Data().(*object.StringData); lok {
		if rs, rok := right.Data().(*object.StringData); rok {
			switch op {
			case bytecode.Add:
				c.Push(d.string(ls.Concat(d.RT, rs)))
				return true, nil
			case bytecode.Eq, bytecode.Ne, bytecode.Lt, bytecode.Gt, bytecode.Le, bytecode.Ge:
				c.Push(d.boolean(compareResult(op, stringOrder(ls.String(), rs.String()))))
				return true, nil
			}
		}
	}

	_, lnum := numberOf(left.Data())
	_, rnum := numberOf(right.Data())
	if (op == bytecode.Eq || op == bytecode.Ne) && !(lnum && rnum) && isScalarKind(left.Data()) && isScalarKind(right.Data()) {
		eq := object.StrictEqual(left.Data(), right.Data())
		if op == bytecode.Ne {
			eq = !eq
		}
		c.Push(d.boolean(eq))
		return true, nil
	}

	if lf, lok := numberOf(left.Data()); lok {
		if rf, rok := numberOf(right.Data()); rok {
			return d.numericBinary(c, op, lf, rf)
		}
	}

	ovOp, ok := operatorOverload[op]
	if !ok {
		return false, errors.New(errors.NoSuchOperator, "operator not applicable to these operands")
	}
	ov, ok := builtin.CallOverload(c, left, ovOp, 1)
	if !ok {
		return false, errors.New(errors.NoSuchOperator, "no such operator")
	}
	c.Push(right)
	return d.invoke(c, left, true, ov, 1)
}

func (d *Dispatcher) numericBinary(c *cursor.Cursor, op bytecode.Op, l, r float64) (bool, error) {
	switch op {
	case bytecode.Add:
		c.Push(d.number(l + r))
	case bytecode.Sub:
		c.Push(d.number(l - r))
	case bytecode.Mul:
		c.Push(d.number(l * r))
	case bytecode.Div:
		if r == 0 {
			return false, errors.New(errors.DivisionByZero, "division by zero")
		}
		c.Push(d.number(l / r))
	case bytecode.Mod:
		ri := int64(r)
		if ri == 0 {
			return false, errors.New(errors.DivisionByZero, "division by zero")
		}
		c.Push(d.number(float64(int64(l) % ri)))
	case bytecode.Pow:
		c.Push(d.number(math.Pow(l, r)))
	case bytecode.Eq, bytecode.Ne, bytecode.Lt, bytecode.Gt, bytecode.Le, bytecode.Ge:
		if math.IsNaN(l) || math.IsNaN(r) {
			c.Push(d.boolean(op == bytecode.Ne))
			break
		}
		cmp := 0
		switch {
		case l < r:
			cmp = -1
		case l > r:
			cmp = 1
		}
		c.Push(d.boolean(compareResult(op, cmp)))
	case bytecode.Band:
		c.Push(d.number(float64(int64(l) & int64(r))))
	case bytecode.Bor:
		c.Push(d.number(float64(int64(l) | int64(r))))
	case bytecode.Xor:
		c.Push(d.number(float64(int64(l) ^ int64(r))))
	case bytecode.ShiftLeft:
		if r < 0 {
			return false, errors.New(errors.InvalidCast, "negative shift count")
		}
		c.Push(d.number(float64(int64(l) << uint(int64(r)))))
	case bytecode.ShiftRight:
		if r < 0 {
			return false, errors.New(errors.InvalidCast, "negative shift count")
		}
		c.Push(d.number(float64(int64(l) >> uint(int64(r)))))
	default:
		return false, errors.Newf(errors.Unhandled, "unimplemented numeric operator %s", op)
	}
	return true, nil
}

// unaryOp implements the single-operand arithmetic/logical opcodes.
func (d *Dispatcher) unaryOp(c *cursor.Cursor, op bytecode.Op) (bool, error) {
	top, ok := c.Pop()
	if !ok {
		return false, cursor.ErrStackUnderflow
	}
	if op == bytecode.Not {
		c.Push(d.boolean(!truthy(top)))
		return true, nil
	}
	if f, ok := numberOf(top.Data()); ok {
		switch op {
		case bytecode.Neg:
			c.Push(d.number(-f))
			return true, nil
		case bytecode.Pos:
			c.Push(d.number(f))
			return true, nil
		case bytecode.Compl:
			c.Push(d.number(float64(^int64(f))))
			return true, nil
		case bytecode.Inc:
			c.Push(d.number(f + 1))
			return true, nil
		case bytecode.Dec:
			c.Push(d.number(f - 1))
			return true, nil
		}
	}
	ovOp, ok := unaryOverload[op]
	if !ok {
		return false, errors.New(errors.NoSuchOperator, "operator not applicable to this operand")
	}
	ov, ok := builtin.CallOverload(c, top, ovOp, 0)
	if !ok {
		return false, errors.New(errors.NoSuchOperator, "no such operator")
	}
	return d.invoke(c, top, true, ov, 0)
}

// logicalOp implements AND/OR once both operands are already evaluated and on the
// stack (as opposed to AND_PRE_CHECK/OR_PRE_CHECK's short-circuiting variant).
func (d *Dispatcher) logicalOp(c *cursor.Cursor, op bytecode.Op) (bool, error) {
	right, ok := c.Pop()
	if !ok {
		return false, cursor.ErrStackUnderflow
	}
	left, ok := c.Pop()
	if !ok {
		return false, cursor.ErrStackUnderflow
	}
	lt, rt := truthy(left), truthy(right)
	var res bool
	if op == bytecode.And {
		res = lt && rt
	} else {
		res = lt || rt
	}
	c.Push(d.boolean(res))
	return true, nil
}

// shortCircuit implements AND_PRE_CHECK/OR_PRE_CHECK: peek the left operand already on
// the stack; if it alone decides the expression (falsy for AND, truthy for OR), jump to
// target leaving it as the result. Otherwise pop it and fall through to evaluate the
// right operand, whose value becomes the final result.
func (d *Dispatcher) shortCircuit(c *cursor.Cursor, op bytecode.Op, target int32) (bool, error) {
	top, ok := c.Peek()
	if !ok {
		return false, cursor.ErrStackUnderflow
	}
	t := truthy(top)
	decides := (op == bytecode.AndPreCheck && !t) || (op == bytecode.OrPreCheck && t)
	if decides {
		c.Jmp(target)
		return true, nil
	}
	c.Pop()
	return true, nil
}
