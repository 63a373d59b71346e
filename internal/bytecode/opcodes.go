// Package bytecode defines the instruction set the dispatch loop executes and the
// flat, append-only node stream a Module is built from.
package bytecode

// Op identifies a single dispatch-loop instruction. Every instruction is one Node: the
// Op sits in Command and its operand, if any, in that same Node's Parameter, Symbol or
// Constant field; no separate operand node follows it in the stream. Which field each
// opcode reads is noted on each group below.
type Op byte

const (
	// Module/bootstrap. LoadModule reads its Constant (the module path); ExitModule
	// takes no operand.
	LoadModule Op = iota
	ExitModule

	// Load. LoadFast/LoadSymbol/LoadMember/LoadOperator/LoadConstant each read one
	// operand field of the matching kind.
	LoadFast
	LoadSymbol
	LoadMember
	LoadOperator
	LoadConstant
	LoadVarSymbol
	LoadVarMember
	CloneReference
	ReloadReference
	UnloadReference
	LoadExtraArguments

	// Declare.
	DeclareFast
	DeclareSymbol
	DeclareFunction
	FunctionOverload
	ResetSymbol
	ResetFast

	// Collection construction. InitIterator/InitArray/InitHash read their Parameter
	// (element count).
	AllocIterator
	InitIterator
	AllocArray
	InitArray
	AllocHash
	InitHash
	CreateLib

	// Arithmetic / comparison.
	Add
	Sub
	Mul
	Div
	Mod
	Pow
	Neg
	Pos
	Inc
	Dec
	Eq
	Ne
	Lt
	Gt
	Le
	Ge
	StrictEq
	StrictNe
	And
	AndPreCheck
	Or
	OrPreCheck
	Not
	Band
	Bor
	Xor
	Compl
	ShiftLeft
	ShiftRight

	// Range / iteration. RangeCheck/RangeIteratorCheck/FindInit/FindNext/FindCheck
	// each read their Parameter (jump target).
	InclusiveRangeOp
	ExclusiveRangeOp
	RangeInit
	RangeNext
	RangeCheck
	RangeIteratorCheck
	FindInit
	FindNext
	FindCheck

	// Indexing.
	SubscriptOp
	SubscriptMoveOp

	// Reflection.
	TypeofOp
	MembersofOp
	FindDefinedSymbol
	FindDefinedMember
	FindDefinedVarSymbol
	FindDefinedVarMember
	CheckDefined

	// Control. Jump/JumpZero/SetRetrievePoint each read their Parameter (jump target
	// / retrieve offset). CaseJump reads its Parameter.
	Jump
	JumpZero
	CaseJump
	SetRetrievePoint
	UnsetRetrievePoint
	Raise

	// Invocation. InitMemberCall/InitOperatorCall/InitParam carry a Symbol/Parameter
	// operand naming the member/operator/parameter. Call/CallMember read their
	// Parameter (argument count). CallBuiltin reads its Parameter (builtin-method
	// table index).
	InitCall
	InitMemberCall
	InitOperatorCall
	InitVarMemberCall
	InitParam
	Call
	CallMember
	CallBuiltin
	ExitCall

	// Concurrency / generators. ExitExec reads its Parameter (status).
	Yield
	YieldExitGenerator
	ExitGenerator
	BeginGeneratorExpression
	EndGeneratorExpression
	YieldExpression
	InitCapture
	CaptureSymbol
	CaptureAs
	CaptureAll
	ExitThread
	ExitExec

	// I/O redirection.
	OpenPrinter
	ClosePrinter
	Print

	// OOP structure. RegisterClass reads its Parameter (class description index).
	OpenPackage
	ClosePackage
	RegisterClass

	// Regex.
	RegexMatch
	RegexUnmatch
)

var opNames = map[Op]string{
	LoadModule: "LOAD_MODULE", ExitModule: "EXIT_MODULE",
	LoadFast: "LOAD_FAST", LoadSymbol: "LOAD_SYMBOL", LoadMember: "LOAD_MEMBER",
	LoadOperator: "LOAD_OPERATOR", LoadConstant: "LOAD_CONSTANT",
	LoadVarSymbol: "LOAD_VAR_SYMBOL", LoadVarMember: "LOAD_VAR_MEMBER",
	CloneReference: "CLONE_REFERENCE", ReloadReference: "RELOAD_REFERENCE",
	UnloadReference: "UNLOAD_REFERENCE", LoadExtraArguments: "LOAD_EXTRA_ARGUMENTS",
	DeclareFast: "DECLARE_FAST", DeclareSymbol: "DECLARE_SYMBOL",
	DeclareFunction: "DECLARE_FUNCTION", FunctionOverload: "FUNCTION_OVERLOAD",
	ResetSymbol: "RESET_SYMBOL", ResetFast: "RESET_FAST",
	AllocIterator: "ALLOC_ITERATOR", InitIterator: "INIT_ITERATOR",
	AllocArray: "ALLOC_ARRAY", InitArray: "INIT_ARRAY",
	AllocHash: "ALLOC_HASH", InitHash: "INIT_HASH", CreateLib: "CREATE_LIB",
	Add: "ADD", Sub: "SUB", Mul: "MUL", Div: "DIV", Mod: "MOD", Pow: "POW",
	Neg: "NEG", Pos: "POS", Inc: "INC", Dec: "DEC",
	Eq: "EQ", Ne: "NE", Lt: "LT", Gt: "GT", Le: "LE", Ge: "GE",
	StrictEq: "STRICT_EQ", StrictNe: "STRICT_NE",
	And: "AND", AndPreCheck: "AND_PRE_CHECK", Or: "OR", OrPreCheck: "OR_PRE_CHECK",
	Not: "NOT", Band: "BAND", Bor: "BOR", Xor: "XOR", Compl: "COMPL",
	ShiftLeft: "SHIFT_LEFT", ShiftRight: "SHIFT_RIGHT",
	InclusiveRangeOp: "INCLUSIVE_RANGE_OP", ExclusiveRangeOp: "EXCLUSIVE_RANGE_OP",
	RangeInit: "RANGE_INIT", RangeNext: "RANGE_NEXT", RangeCheck: "RANGE_CHECK",
	RangeIteratorCheck: "RANGE_ITERATOR_CHECK",
	FindInit: "FIND_INIT", FindNext: "FIND_NEXT", FindCheck: "FIND_CHECK",
	SubscriptOp: "SUBSCRIPT_OP", SubscriptMoveOp: "SUBSCRIPT_MOVE_OP",
	TypeofOp: "TYPEOF_OP", MembersofOp: "MEMBERSOF_OP",
	FindDefinedSymbol: "FIND_DEFINED_SYMBOL", FindDefinedMember: "FIND_DEFINED_MEMBER",
	FindDefinedVarSymbol: "FIND_DEFINED_VAR_SYMBOL", FindDefinedVarMember: "FIND_DEFINED_VAR_MEMBER",
	CheckDefined: "CHECK_DEFINED",
	Jump:         "JUMP", JumpZero: "JUMP_ZERO", CaseJump: "CASE_JUMP",
	SetRetrievePoint: "SET_RETRIEVE_POINT", UnsetRetrievePoint: "UNSET_RETRIEVE_POINT",
	Raise: "RAISE",
	InitCall: "INIT_CALL", InitMemberCall: "INIT_MEMBER_CALL",
	InitOperatorCall: "INIT_OPERATOR_CALL", InitVarMemberCall: "INIT_VAR_MEMBER_CALL",
	InitParam: "INIT_PARAM", Call: "CALL", CallMember: "CALL_MEMBER",
	CallBuiltin: "CALL_BUILTIN", ExitCall: "EXIT_CALL",
	Yield: "YIELD", YieldExitGenerator: "YIELD_EXIT_GENERATOR",
	ExitGenerator:            "EXIT_GENERATOR",
	BeginGeneratorExpression: "BEGIN_GENERATOR_EXPRESSION",
	EndGeneratorExpression:   "END_GENERATOR_EXPRESSION",
	YieldExpression:          "YIELD_EXPRESSION",
	InitCapture:              "INIT_CAPTURE", CaptureSymbol: "CAPTURE_SYMBOL",
	CaptureAs: "CAPTURE_AS", CaptureAll: "CAPTURE_ALL",
	ExitThread: "EXIT_THREAD", ExitExec: "EXIT_EXEC",
	OpenPrinter: "OPEN_PRINTER", ClosePrinter: "CLOSE_PRINTER", Print: "PRINT",
	OpenPackage: "OPEN_PACKAGE", ClosePackage: "CLOSE_PACKAGE",
	RegisterClass: "REGISTER_CLASS",
	RegexMatch:    "REGEX_MATCH", RegexUnmatch: "REGEX_UNMATCH",
}

func (op Op) String() string {
	if name, ok := opNames[op]; ok {
		return name
	}
	return "UNKNOWN_OP"
}
