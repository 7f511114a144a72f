package memstore

import (
	"bytes"
	"fmt"
	"reflect"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// normalizeDoc round-trips v through BSON so documents, filters and updates
// share the driver's value representation (int32, DateTime, primitive.A).
func normalizeDoc(v interface{}) bson.M {
	if v == nil {
		return bson.M{}
	}
	raw, err := bson.Marshal(v)
	if err != nil {
		panic(fmt.Sprintf("memstore: marshal %T: %v", v, err))
	}
	var out bson.M
	if err := bson.Unmarshal(raw, &out); err != nil {
		panic(fmt.Sprintf("memstore: unmarshal %T: %v", v, err))
	}
	return out
}

// normalizeOrdered is normalizeDoc for documents whose key order matters.
func normalizeOrdered(v interface{}) bson.D {
	raw, err := bson.Marshal(bson.D{{Key: "v", Value: v}})
	if err != nil {
		panic(fmt.Sprintf("memstore: marshal %T: %v", v, err))
	}
	var wrapper bson.D
	if err := bson.Unmarshal(raw, &wrapper); err != nil {
		panic(fmt.Sprintf("memstore: unmarshal %T: %v", v, err))
	}
	switch inner := wrapper[0].Value.(type) {
	case bson.D:
		return inner
	case bson.M:
		out := make(bson.D, 0, len(inner))
		for k, val := range inner {
			out = append(out, bson.E{Key: k, Value: val})
		}
		return out
	default:
		return nil
	}
}

func clone(doc bson.M) bson.M {
	return normalizeDoc(doc)
}

func asMap(v interface{}) (bson.M, bool) {
	switch m := v.(type) {
	case bson.M:
		return m, true
	case map[string]interface{}:
		return bson.M(m), true
	case bson.D:
		out := make(bson.M, len(m))
		for _, e := range m {
			out[e.Key] = e.Value
		}
		return out, true
	default:
		return nil, false
	}
}

func isOperatorDoc(m bson.M) bool {
	if len(m) == 0 {
		return false
	}
	for k := range m {
		if !strings.HasPrefix(k, "$") {
			return false
		}
	}
	return true
}

func lookup(doc bson.M, path string) (interface{}, bool) {
	var current interface{} = doc
	for _, part := range strings.Split(path, ".") {
		m, ok := asMap(current)
		if !ok {
			return nil, false
		}
		current, ok = m[part]
		if !ok {
			return nil, false
		}
	}
	return current, true
}

func setPath(doc bson.M, path string, value interface{}) {
	parts := strings.Split(path, ".")
	current := doc
	for _, part := range parts[:len(parts)-1] {
		next, ok := asMap(current[part])
		if !ok {
			next = bson.M{}
		}
		current[part] = next
		current = next
	}
	current[parts[len(parts)-1]] = value
}

func unsetPath(doc bson.M, path string) {
	parts := strings.Split(path, ".")
	current := doc
	for _, part := range parts[:len(parts)-1] {
		next, ok := asMap(current[part])
		if !ok {
			return
		}
		current = next
	}
	delete(current, parts[len(parts)-1])
}

func matches(doc bson.M, filter bson.M) bool {
	for key, cond := range filter {
		switch key {
		case "$and":
			for _, sub := range asSlice(cond) {
				m, ok := asMap(sub)
				if !ok || !matches(doc, m) {
					return false
				}
			}
			continue
		case "$or":
			matched := false
			for _, sub := range asSlice(cond) {
				if m, ok := asMap(sub); ok && matches(doc, m) {
					matched = true
					break
				}
			}
			if !matched {
				return false
			}
			continue
		}

		val, exists := lookup(doc, key)
		if ops, ok := asMap(cond); ok && isOperatorDoc(ops) {
			for op, arg := range ops {
				if !applyOperator(op, val, exists, arg) {
					return false
				}
			}
			continue
		}
		if !exists {
			if cond != nil {
				return false
			}
			continue
		}
		if !matchesValue(val, cond) {
			return false
		}
	}
	return true
}

// matchesValue treats array fields as matching when any element does.
func matchesValue(val, cond interface{}) bool {
	if equal(val, cond) {
		return true
	}
	if arr, ok := val.(primitive.A); ok {
		for _, elem := range arr {
			if equal(elem, cond) {
				return true
			}
		}
	}
	return false
}

func applyOperator(op string, val interface{}, exists bool, arg interface{}) bool {
	switch op {
	case "$eq":
		return exists && matchesValue(val, arg) || !exists && arg == nil
	case "$ne":
		return !(exists && matchesValue(val, arg) || !exists && arg == nil)
	case "$exists":
		return exists == truthy(arg)
	case "$in":
		for _, candidate := range asSlice(arg) {
			if exists && matchesValue(val, candidate) || !exists && candidate == nil {
				return true
			}
		}
		return false
	case "$nin":
		return !applyOperator("$in", val, exists, arg)
	case "$gt", "$gte", "$lt", "$lte":
		if !exists {
			return false
		}
		cmp, ok := compare(val, arg)
		if !ok {
			return false
		}
		switch op {
		case "$gt":
			return cmp > 0
		case "$gte":
			return cmp >= 0
		case "$lt":
			return cmp < 0
		default:
			return cmp <= 0
		}
	default:
		panic("memstore: unsupported query operator " + op)
	}
}

func asSlice(v interface{}) []interface{} {
	switch s := v.(type) {
	case primitive.A:
		return s
	case []interface{}:
		return s
	default:
		return nil
	}
}

func toFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case int:
		return float64(n), true
	case float64:
		return n, true
	default:
		return 0, false
	}
}

func truthy(v interface{}) bool {
	if b, ok := v.(bool); ok {
		return b
	}
	if n, ok := toFloat(v); ok {
		return n != 0
	}
	return v != nil
}

func equal(a, b interface{}) bool {
	if af, ok := toFloat(a); ok {
		if bf, ok := toFloat(b); ok {
			return af == bf
		}
		return false
	}
	return reflect.DeepEqual(a, b)
}

// compare orders two values of the same BSON kind. ok is false when the
// values are not comparable.
func compare(a, b interface{}) (int, bool) {
	if af, ok := toFloat(a); ok {
		bf, ok := toFloat(b)
		if !ok {
			return 0, false
		}
		switch {
		case af < bf:
			return -1, true
		case af > bf:
			return 1, true
		}
		return 0, true
	}
	switch av := a.(type) {
	case string:
		bv, ok := b.(string)
		if !ok {
			return 0, false
		}
		return strings.Compare(av, bv), true
	case primitive.DateTime:
		bv, ok := b.(primitive.DateTime)
		if !ok {
			return 0, false
		}
		switch {
		case av < bv:
			return -1, true
		case av > bv:
			return 1, true
		}
		return 0, true
	case primitive.ObjectID:
		bv, ok := b.(primitive.ObjectID)
		if !ok {
			return 0, false
		}
		return bytes.Compare(av[:], bv[:]), true
	case bool:
		bv, ok := b.(bool)
		if !ok {
			return 0, false
		}
		switch {
		case av == bv:
			return 0, true
		case !av:
			return -1, true
		}
		return 1, true
	case nil:
		if b == nil {
			return 0, true
		}
		return -1, true
	}
	return 0, false
}

// applyUpdate mutates doc and reports whether any field changed.
func applyUpdate(doc bson.M, update bson.M, inserting bool) (bool, error) {
	before := clone(doc)
	for op, body := range update {
		fields, ok := asMap(body)
		if !ok {
			return false, fmt.Errorf("memstore: %s expects a document", op)
		}
		switch op {
		case "$set":
			for path, v := range fields {
				setPath(doc, path, v)
			}
		case "$setOnInsert":
			if !inserting {
				continue
			}
			for path, v := range fields {
				setPath(doc, path, v)
			}
		case "$unset":
			for path := range fields {
				unsetPath(doc, path)
			}
		case "$inc":
			for path, v := range fields {
				current, _ := lookup(doc, path)
				setPath(doc, path, addNumbers(current, v))
			}
		default:
			return false, fmt.Errorf("memstore: unsupported update operator %s", op)
		}
	}
	return !reflect.DeepEqual(before, doc), nil
}

func addNumbers(a, b interface{}) interface{} {
	if a == nil {
		return b
	}
	ai, aInt := asInt(a)
	bi, bInt := asInt(b)
	if aInt && bInt {
		sum := ai + bi
		if _, wide := a.(int64); wide || sum > int64(^uint32(0)>>1) || sum < -int64(^uint32(0)>>1)-1 {
			return sum
		}
		return int32(sum)
	}
	af, _ := toFloat(a)
	bf, _ := toFloat(b)
	return af + bf
}

func asInt(v interface{}) (int64, bool) {
	switch n := v.(type) {
	case int32:
		return int64(n), true
	case int64:
		return n, true
	case int:
		return int64(n), true
	default:
		return 0, false
	}
}

func runStage(docs []bson.M, op string, arg interface{}) ([]bson.M, error) {
	switch op {
	case "$match":
		filter, ok := asMap(arg)
		if !ok {
			return nil, fmt.Errorf("memstore: $match expects a document")
		}
		var out []bson.M
		for _, doc := range docs {
			if matches(doc, filter) {
				out = append(out, doc)
			}
		}
		return out, nil
	case "$sort":
		spec, ok := arg.(bson.D)
		if !ok {
			return nil, fmt.Errorf("memstore: $sort expects an ordered document")
		}
		sortDocs(docs, spec)
		return docs, nil
	case "$skip":
		n, _ := asInt(arg)
		return window(docs, n, 0), nil
	case "$limit":
		n, _ := asInt(arg)
		return window(docs, 0, n), nil
	case "$group":
		spec, ok := asMap(arg)
		if !ok {
			return nil, fmt.Errorf("memstore: $group expects a document")
		}
		return group(docs, spec)
	default:
		return nil, fmt.Errorf("memstore: unsupported pipeline stage %s", op)
	}
}

type sumAccumulator struct {
	ints    int64
	floats  float64
	isFloat bool
}

func (a *sumAccumulator) add(v interface{}) {
	if n, ok := asInt(v); ok {
		a.ints += n
		return
	}
	if f, ok := toFloat(v); ok {
		a.floats += f
		a.isFloat = true
	}
}

func (a *sumAccumulator) value() interface{} {
	if a.isFloat {
		return a.floats + float64(a.ints)
	}
	return a.ints
}

func group(docs []bson.M, spec bson.M) ([]bson.M, error) {
	type bucket struct {
		id   interface{}
		sums map[string]*sumAccumulator
	}
	var (
		order   []string
		buckets = map[string]*bucket{}
	)
	for _, doc := range docs {
		id := evalExpr(doc, spec["_id"])
		key := fmt.Sprintf("%#v", id)
		b, ok := buckets[key]
		if !ok {
			b = &bucket{id: id, sums: map[string]*sumAccumulator{}}
			buckets[key] = b
			order = append(order, key)
		}
		for field, accSpec := range spec {
			if field == "_id" {
				continue
			}
			acc, ok := asMap(accSpec)
			if !ok {
				return nil, fmt.Errorf("memstore: accumulator for %s must be a document", field)
			}
			for accOp, accArg := range acc {
				if accOp != "$sum" {
					return nil, fmt.Errorf("memstore: unsupported accumulator %s", accOp)
				}
				sum, ok := b.sums[field]
				if !ok {
					sum = &sumAccumulator{}
					b.sums[field] = sum
				}
				sum.add(evalExpr(doc, accArg))
			}
		}
	}

	out := make([]bson.M, 0, len(order))
	for _, key := range order {
		b := buckets[key]
		doc := bson.M{"_id": b.id}
		for field := range spec {
			if field == "_id" {
				continue
			}
			if sum, ok := b.sums[field]; ok {
				doc[field] = sum.value()
			}
		}
		out = append(out, doc)
	}
	return out, nil
}

func evalExpr(doc bson.M, expr interface{}) interface{} {
	if s, ok := expr.(string); ok && strings.HasPrefix(s, "$") {
		v, _ := lookup(doc, strings.TrimPrefix(s, "$"))
		return v
	}
	if m, ok := asMap(expr); ok {
		out := bson.M{}
		for k, v := range m {
			out[k] = evalExpr(doc, v)
		}
		return out
	}
	return expr
}
