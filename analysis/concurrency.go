package analysis

import (
	"sort"

	sitter "github.com/smacker/go-tree-sitter"
)

// mutexMethods are selector method names treated as mutex operations.
var mutexMethods = map[string]bool{
	"Lock": true, "Unlock": true, "RLock": true, "RUnlock": true, "Wait": true,
}

// isMutexCall reports whether call invokes a mutex method through a selector.
func isMutexCall(call *sitter.Node, src []byte) bool {
	sel := call.ChildByFieldName("function")
	if sel == nil || sel.Type() != "selector_expression" {
		return false
	}
	field := sel.ChildByFieldName("field")
	return field != nil && mutexMethods[text(src, field)]
}

// isAtomicCall reports whether call is an atomic package intrinsic from the
// fixed allow-list.
func isAtomicCall(call *sitter.Node, src []byte) bool {
	fn := call.ChildByFieldName("function")
	if fn == nil || fn.Type() != "selector_expression" {
		return false
	}
	operand := fn.ChildByFieldName("operand")
	field := fn.ChildByFieldName("field")
	if operand == nil || field == nil {
		return false
	}
	return text(src, operand) == "atomic" && atomicFuncs[text(src, field)]
}

// findSyncInNode reports whether node's subtree contains a mutex or atomic
// call.
func findSyncInNode(node *sitter.Node, src []byte) bool {
	if node.Type() == "call_expression" && (isMutexCall(node, src) || isAtomicCall(node, src)) {
		return true
	}
	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(i)
		if child == nil {
			continue
		}
		if findSyncInNode(child, src) {
			return true
		}
	}
	return false
}

// HasSynchronizationInBlock reports whether the nearest block enclosing rng
// contains any mutex or atomic call.
func HasSynchronizationInBlock(tree *sitter.Tree, rng Range, src []byte) bool {
	target := rangeStartPoint(rng)
	block := findEnclosingBlock(tree.RootNode(), target)
	if block == nil {
		return false
	}
	for i := 0; i < int(block.ChildCount()); i++ {
		child := block.Child(i)
		if child == nil {
			continue
		}
		if kind := child.Type(); kind == "{" || kind == "}" {
			continue
		}
		if findSyncInNode(child, src) {
			return true
		}
	}
	return false
}

// findEnclosingBlock finds the outermost block containing target via
// pre-order scan, matching the first block whose span covers it.
func findEnclosingBlock(root *sitter.Node, target sitter.Point) *sitter.Node {
	stack := []*sitter.Node{root}
	for len(stack) > 0 {
		node := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if node.Type() == "block" && nodeContainsPoint(node, target) {
			return node
		}
		for i := int(node.ChildCount()) - 1; i >= 0; i-- {
			if child := node.Child(i); child != nil {
				stack = append(stack, child)
			}
		}
	}
	return nil
}

// CollectSyncFuncs returns the names of functions and methods whose bodies
// contain a mutex or atomic call. Calls to these are treated as synchronizing
// one level of indirection deep.
func CollectSyncFuncs(tree *sitter.Tree, src []byte) map[string]bool {
	names := make(map[string]bool)
	stack := []*sitter.Node{tree.RootNode()}
	for len(stack) > 0 {
		node := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		switch node.Type() {
		case "function_declaration", "method_declaration":
			body := node.ChildByFieldName("body")
			nameNode := node.ChildByFieldName("name")
			if body != nil && nameNode != nil && findSyncInNode(body, src) {
				if name := text(src, nameNode); name != "" {
					names[name] = true
				}
			}
		}
		for i := int(node.ChildCount()) - 1; i >= 0; i-- {
			if child := node.Child(i); child != nil {
				stack = append(stack, child)
			}
		}
	}
	return names
}

// callName extracts the bare function or method name from a call expression.
func callName(call *sitter.Node, src []byte) string {
	fn := call.ChildByFieldName("function")
	if fn == nil {
		return ""
	}
	switch fn.Type() {
	case "identifier":
		return text(src, fn)
	case "selector_expression":
		if field := fn.ChildByFieldName("field"); field != nil {
			return text(src, field)
		}
	}
	return ""
}

// IsSynchronized decides whether the access at rng is covered by active
// synchronization: either the access sits inside a mutex/atomic call or a
// known synchronizing wrapper, or the lock-state replay over the enclosing
// block shows a lock held at the access point.
func IsSynchronized(tree *sitter.Tree, rng Range, src []byte, syncFuncs map[string]bool) bool {
	target := rangeStartPoint(rng)
	targetNode := FindNodeAt(tree.RootNode(), target)
	if targetNode == nil {
		return HasSynchronizationInBlock(tree, rng, src)
	}
	for node := targetNode; node != nil; node = node.Parent() {
		if node.Type() != "call_expression" {
			continue
		}
		if isMutexCall(node, src) || isAtomicCall(node, src) {
			return true
		}
		if name := callName(node, src); name != "" && syncFuncs[name] {
			return true
		}
	}
	for node := targetNode; node != nil; node = node.Parent() {
		if node.Type() == "block" {
			return activeLockAt(node, targetNode, src)
		}
	}
	return false
}

// activeLockAt replays lock/unlock deltas over every call in block, in
// source order, up to the target's byte offset. Only calls in the same
// execution context as the target count; unlocks under defer do not release
// until function exit and are skipped. The access is covered iff any lock
// key keeps depth > 0 at the cutoff.
func activeLockAt(block, targetNode *sitter.Node, src []byte) bool {
	targetContext := executionContext(targetNode)
	targetByte := targetNode.StartByte()

	var calls []*sitter.Node
	stack := []*sitter.Node{block}
	for len(stack) > 0 {
		node := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if node.Type() == "call_expression" {
			calls = append(calls, node)
		}
		for i := int(node.ChildCount()) - 1; i >= 0; i-- {
			if child := node.Child(i); child != nil {
				stack = append(stack, child)
			}
		}
	}
	sort.Slice(calls, func(i, j int) bool { return calls[i].StartByte() < calls[j].StartByte() })

	depths := make(map[string]int)
	for _, call := range calls {
		if call.StartByte() > targetByte {
			break
		}
		if !sameNode(targetContext, executionContext(call)) {
			continue
		}
		key, delta, ok := lockEvent(call, src)
		if !ok {
			continue
		}
		if delta < 0 && underDefer(call) {
			continue
		}
		depths[key] += delta
		if depths[key] <= 0 {
			delete(depths, key)
		}
	}
	for _, depth := range depths {
		if depth > 0 {
			return true
		}
	}
	return false
}

// executionContext returns the nearest enclosing function, method, or
// closure literal, the unit within which call order is meaningful.
func executionContext(node *sitter.Node) *sitter.Node {
	for current := node; current != nil; current = current.Parent() {
		switch current.Type() {
		case "function_declaration", "method_declaration", "func_literal":
			return current
		}
	}
	return nil
}

// lockEvent maps a call to a (lock key, depth delta) pair. The key is the
// textual receiver expression, so mu.Lock() and mu.Unlock() pair up while
// other.Lock() tracks separately.
func lockEvent(call *sitter.Node, src []byte) (string, int, bool) {
	fn := call.ChildByFieldName("function")
	if fn == nil || fn.Type() != "selector_expression" {
		return "", 0, false
	}
	operand := fn.ChildByFieldName("operand")
	field := fn.ChildByFieldName("field")
	if operand == nil || field == nil {
		return "", 0, false
	}
	var delta int
	switch text(src, field) {
	case "Lock", "RLock":
		delta = 1
	case "Unlock", "RUnlock":
		delta = -1
	default:
		return "", 0, false
	}
	key := text(src, operand)
	if key == "" {
		return "", 0, false
	}
	return key, delta, true
}

func underDefer(node *sitter.Node) bool {
	for current := node; current != nil; current = current.Parent() {
		if current.Type() == "defer_statement" {
			return true
		}
	}
	return false
}

// IsInAtomicContext reports whether the access at rng sits inside an atomic
// intrinsic call.
func IsInAtomicContext(tree *sitter.Tree, rng Range, src []byte) bool {
	target := rangeStartPoint(rng)
	for node := FindNodeAt(tree.RootNode(), target); node != nil; node = node.Parent() {
		if node.Type() == "call_expression" && isAtomicCall(node, src) {
			return true
		}
	}
	return false
}

// IsInGoroutine reports whether rng lies lexically inside a spawned unit:
// either an inline closure passed to go, or a named-function go call.
func IsInGoroutine(tree *sitter.Tree, rng Range) bool {
	target := rangeStartPoint(rng)
	return findGoroutineContext(tree.RootNode(), target) != nil
}

func findGoroutineContext(node *sitter.Node, target sitter.Point) *sitter.Node {
	if !nodeContainsPoint(node, target) {
		return nil
	}
	switch node.Type() {
	case "go_statement":
		return node
	case "func_literal", "call_expression":
		if parent := node.Parent(); parent != nil && parent.Type() == "go_statement" {
			return parent
		}
	}
	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(i)
		if child == nil {
			continue
		}
		if found := findGoroutineContext(child, target); found != nil {
			return found
		}
	}
	return nil
}

// IsCaptured reports whether the use at useRange references a variable
// declared outside its own closure or goroutine boundary. A declaration and
// use sharing the same boundary node is ordinary same-closure use, not a
// capture.
func IsCaptured(tree *sitter.Tree, useRange, declRange Range) bool {
	useNode := FindNodeAt(tree.RootNode(), rangeStartPoint(useRange))
	declNode := FindNodeAt(tree.RootNode(), rangeStartPoint(declRange))
	if useNode == nil || declNode == nil {
		return false
	}
	useBoundary := enclosingClosureOrGo(useNode)
	if useBoundary == nil {
		return false
	}
	declBoundary := enclosingClosureOrGo(declNode)
	if declBoundary == nil {
		return true
	}
	return !sameNode(useBoundary, declBoundary)
}

// enclosingClosureOrGo walks up to the nearest func_literal or go_statement,
// stopping at a named function boundary.
func enclosingClosureOrGo(node *sitter.Node) *sitter.Node {
	for current := node; current != nil; current = current.Parent() {
		switch current.Type() {
		case "func_literal", "go_statement":
			return current
		case "function_declaration", "method_declaration":
			return nil
		}
	}
	return nil
}
