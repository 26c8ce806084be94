package morph

import (
	"math"
	"reflect"
	"testing"

	"proteus/internal/model"
)

func testParameter(name string, maxPower ...int) model.Parameter {
	return model.Parameter{Name: name, LHABlock: "dim6", LHAID: 1, MaxPower: maxPower, Range: [2]float64{-1, 1}}
}

func TestFindComponentsSingleParameterCardinality(t *testing.T) {
	params := []model.Parameter{testParameter("cwl2", 2)}
	components, err := FindComponents(params, []int{2})
	if err != nil {
		t.Fatalf("find components: %v", err)
	}
	if len(components) != 3 {
		t.Fatalf("unexpected component count: got=%d want=3", len(components))
	}
	for i, c := range components {
		if c.Config != 0 || len(c.Powers) != 1 || c.Powers[0] != i {
			t.Fatalf("unexpected component %d: %+v", i, c)
		}
	}
}

func TestFindComponentsOrderingStable(t *testing.T) {
	params := []model.Parameter{testParameter("cwl2", 1), testParameter("cpwl2", 2)}
	first, err := FindComponents(params, []int{4})
	if err != nil {
		t.Fatalf("find components: %v", err)
	}
	second, err := FindComponents(params, []int{4})
	if err != nil {
		t.Fatalf("find components again: %v", err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("enumeration is not deterministic: %+v vs %+v", first, second)
	}

	want := [][]int{{0, 0}, {0, 1}, {0, 2}, {1, 0}, {1, 1}, {1, 2}}
	if len(first) != len(want) {
		t.Fatalf("unexpected component count: got=%d want=%d", len(first), len(want))
	}
	for i, c := range first {
		if !reflect.DeepEqual(c.Powers, want[i]) {
			t.Fatalf("unexpected powers at %d: got=%v want=%v", i, c.Powers, want[i])
		}
	}
}

func TestFindComponentsOverallBudgetFilters(t *testing.T) {
	params := []model.Parameter{testParameter("a", 2), testParameter("b", 2)}
	components, err := FindComponents(params, []int{2})
	if err != nil {
		t.Fatalf("find components: %v", err)
	}

	want := [][]int{{0, 0}, {0, 1}, {0, 2}, {1, 0}, {1, 1}, {2, 0}}
	if len(components) != len(want) {
		t.Fatalf("unexpected component count: got=%d want=%d", len(components), len(want))
	}
	for i, c := range components {
		if !reflect.DeepEqual(c.Powers, want[i]) {
			t.Fatalf("unexpected powers at %d: got=%v want=%v", i, c.Powers, want[i])
		}
	}
}

func TestFindComponentsMultipleConfigurations(t *testing.T) {
	params := []model.Parameter{testParameter("a", 1, 2)}
	components, err := FindComponents(params, []int{1, 2})
	if err != nil {
		t.Fatalf("find components: %v", err)
	}

	want := []model.Component{
		{Config: 0, Powers: []int{0}},
		{Config: 0, Powers: []int{1}},
		{Config: 1, Powers: []int{0}},
		{Config: 1, Powers: []int{1}},
		{Config: 1, Powers: []int{2}},
	}
	if !reflect.DeepEqual(components, want) {
		t.Fatalf("unexpected components: got=%+v want=%+v", components, want)
	}
}

func TestFindComponentsEmptyRegistry(t *testing.T) {
	components, err := FindComponents(nil, []int{4})
	if err != nil {
		t.Fatalf("find components: %v", err)
	}
	if len(components) != 1 || len(components[0].Powers) != 0 {
		t.Fatalf("expected single constant component, got %+v", components)
	}
}

func TestFindComponentsZeroBudget(t *testing.T) {
	params := []model.Parameter{testParameter("a", 0), testParameter("b", 0)}
	components, err := FindComponents(params, []int{0})
	if err != nil {
		t.Fatalf("find components: %v", err)
	}
	if len(components) != 1 || !reflect.DeepEqual(components[0].Powers, []int{0, 0}) {
		t.Fatalf("expected single zero-power component, got %+v", components)
	}
}

func TestFindComponentsShortMaxPowerTuple(t *testing.T) {
	params := []model.Parameter{testParameter("a", 2)}
	if _, err := FindComponents(params, []int{2, 3}); err == nil {
		t.Fatal("expected error for max power tuple shorter than configuration count")
	}
}

func TestFindComponentsNegativeBudget(t *testing.T) {
	params := []model.Parameter{testParameter("a", 2)}
	if _, err := FindComponents(params, []int{-1}); err == nil {
		t.Fatal("expected error for negative overall budget")
	}
}

func TestEvaluateComponentZeroExponents(t *testing.T) {
	c := model.Component{Powers: []int{0, 0}}
	for _, point := range [][]float64{{0, 0}, {3.5, -2}, {-1e6, 1e6}} {
		value, err := EvaluateComponent(c, point)
		if err != nil {
			t.Fatalf("evaluate at %v: %v", point, err)
		}
		if value != 1 {
			t.Fatalf("zero-exponent component at %v: got=%g want=1", point, value)
		}
	}
}

func TestEvaluateComponentSingleParameterPower(t *testing.T) {
	c := model.Component{Powers: []int{3}}
	value, err := EvaluateComponent(c, []float64{-2})
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if math.Abs(value-(-8)) > 1e-12 {
		t.Fatalf("unexpected value: got=%g want=-8", value)
	}
}

func TestEvaluateComponentMixedPowers(t *testing.T) {
	c := model.Component{Powers: []int{2, 0, 1}}
	value, err := EvaluateComponent(c, []float64{3, 99, 0.5})
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if math.Abs(value-4.5) > 1e-12 {
		t.Fatalf("unexpected value: got=%g want=4.5", value)
	}
}

func TestEvaluateComponentDimensionMismatch(t *testing.T) {
	c := model.Component{Powers: []int{1, 2}}
	if _, err := EvaluateComponent(c, []float64{1}); err == nil {
		t.Fatal("expected dimension mismatch error")
	}
}
