package router

import "testing"

func TestDecodeParams(t *testing.T) {
	var target struct {
		Name    string  `param:"name"`
		Page    int     `param:"page"`
		Count   uint16  `param:"count"`
		Ratio   float64 `param:"ratio"`
		Debug   bool    `param:"debug"`
		Missing string  `param:"missing"`
		Ignored string
	}

	err := DecodeParams(map[string]string{
		"name":  "alpha-test",
		"page":  "3",
		"count": "7",
		"ratio": "0.5",
		"debug": "true",
	}, &target)
	if err != nil {
		t.Fatalf("DecodeParams() error: %v", err)
	}
	if target.Name != "alpha-test" || target.Page != 3 || target.Count != 7 || target.Ratio != 0.5 || !target.Debug {
		t.Errorf("target = %+v", target)
	}
	if target.Missing != "" {
		t.Errorf("Missing = %q, want empty", target.Missing)
	}
}

func TestDecodeParamsErrors(t *testing.T) {
	var s struct {
		Page int `param:"page"`
	}
	if err := DecodeParams(map[string]string{"page": "x"}, &s); err == nil {
		t.Error("expected error for invalid integer")
	}
	if err := DecodeParams(nil, s); err == nil {
		t.Error("expected error for non-pointer target")
	}
	n := 1
	if err := DecodeParams(nil, &n); err == nil {
		t.Error("expected error for pointer to non-struct")
	}
	if err := DecodeParams(nil, nil); err != nil {
		t.Errorf("nil target err = %v", err)
	}
	var small struct {
		V int8 `param:"v"`
	}
	if err := DecodeParams(map[string]string{"v": "300"}, &small); err == nil {
		t.Error("expected overflow error for int8")
	}
}
