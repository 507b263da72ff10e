package relation

import (
	"errors"
	"reflect"
	"sort"
	"testing"

	"github.com/JacobJNilsson/ingestion-contract-mcp/internal/apperrors"
	"github.com/JacobJNilsson/ingestion-contract-mcp/internal/contract"
)

// table builds a descriptor with one single-column foreign key per referred
// table name.
func table(name string, refs ...string) contract.TableDescriptor {
	d := contract.TableDescriptor{Name: name, PrimaryKey: []string{"id"}}
	for _, r := range refs {
		d.ForeignKeys = append(d.ForeignKeys, contract.ForeignKey{
			Columns:         []string{r + "_id"},
			ReferredTable:   r,
			ReferredColumns: []string{"id"},
		})
	}
	return d
}

func order(t *testing.T, a Annotation) int {
	t.Helper()
	if a.LoadOrder == nil {
		t.Fatalf("LoadOrder=nil, want a rank")
	}
	return *a.LoadOrder
}

func TestBuildDependencyOrder_Chain(t *testing.T) {
	t.Parallel()

	annotations, err := BuildDependencyOrder([]contract.TableDescriptor{
		table("users"),
		table("orders", "users"),
		table("line_items", "orders"),
	}, Abort)
	if err != nil {
		t.Fatalf("BuildDependencyOrder() err=%v, want nil", err)
	}

	wantRanks := map[string]int{"users": 1, "orders": 2, "line_items": 3}
	for name, want := range wantRanks {
		if got := order(t, annotations[name]); got != want {
			t.Errorf("load_order[%s]=%d, want %d", name, got, want)
		}
	}

	wantDeps := map[string][]string{
		"users":      {},
		"orders":     {"users"},
		"line_items": {"orders"},
	}
	for name, want := range wantDeps {
		if got := annotations[name].DependsOn; !reflect.DeepEqual(got, want) {
			t.Errorf("depends_on[%s]=%v, want %v", name, got, want)
		}
	}

	if got := annotations["users"].ReferencedBy; !reflect.DeepEqual(got, []string{"orders"}) {
		t.Errorf("referenced_by[users]=%v, want [orders]", got)
	}
	if got := annotations["line_items"].ReferencedBy; len(got) != 0 {
		t.Errorf("referenced_by[line_items]=%v, want empty", got)
	}
}

func TestBuildDependencyOrder_SharedWaves(t *testing.T) {
	t.Parallel()

	// users and products have no dependencies and share the first wave;
	// orders joins once both are placed; order_items last.
	annotations, err := BuildDependencyOrder([]contract.TableDescriptor{
		table("order_items", "orders", "products"),
		table("orders", "users", "products"),
		table("products"),
		table("users"),
	}, Abort)
	if err != nil {
		t.Fatalf("BuildDependencyOrder() err=%v, want nil", err)
	}

	want := map[string]int{"users": 1, "products": 1, "orders": 2, "order_items": 3}
	for name, rank := range want {
		if got := order(t, annotations[name]); got != rank {
			t.Errorf("load_order[%s]=%d, want %d", name, got, rank)
		}
	}
}

func TestBuildDependencyOrder_NoDependencies(t *testing.T) {
	t.Parallel()

	annotations, err := BuildDependencyOrder([]contract.TableDescriptor{
		table("a"), table("b"), table("c"),
	}, Abort)
	if err != nil {
		t.Fatalf("BuildDependencyOrder() err=%v, want nil", err)
	}
	for name, a := range annotations {
		if got := order(t, a); got != 1 {
			t.Errorf("load_order[%s]=%d, want 1", name, got)
		}
	}
}

func TestBuildDependencyOrder_CycleAbort(t *testing.T) {
	t.Parallel()

	_, err := BuildDependencyOrder([]contract.TableDescriptor{
		table("a", "b"),
		table("b", "a"),
		table("c"),
	}, Abort)
	if err == nil {
		t.Fatalf("BuildDependencyOrder() err=nil, want CycleDetectedError")
	}

	var cycleErr *apperrors.CycleDetectedError
	if !errors.As(err, &cycleErr) {
		t.Fatalf("error %v is not a CycleDetectedError", err)
	}
	if want := []string{"a", "b"}; !reflect.DeepEqual(cycleErr.Tables, want) {
		t.Fatalf("cycle tables=%v, want %v", cycleErr.Tables, want)
	}
}

func TestBuildDependencyOrder_CyclePartial(t *testing.T) {
	t.Parallel()

	annotations, err := BuildDependencyOrder([]contract.TableDescriptor{
		table("a", "b"),
		table("b", "a"),
		table("c"),
	}, Partial)
	if err != nil {
		t.Fatalf("BuildDependencyOrder(Partial) err=%v, want nil", err)
	}

	if got := order(t, annotations["c"]); got != 1 {
		t.Errorf("load_order[c]=%d, want 1", got)
	}
	for _, name := range []string{"a", "b"} {
		if annotations[name].LoadOrder != nil {
			t.Errorf("load_order[%s]=%d, want nil", name, *annotations[name].LoadOrder)
		}
	}
}

func TestBuildDependencyOrder_UnresolvedReference(t *testing.T) {
	t.Parallel()

	// orders references users, but users is not part of the request: the
	// edge must not enter the graph, and the target must be surfaced.
	annotations, err := BuildDependencyOrder([]contract.TableDescriptor{
		table("orders", "users"),
		table("products"),
	}, Abort)
	if err != nil {
		t.Fatalf("BuildDependencyOrder() err=%v, want nil", err)
	}

	orders := annotations["orders"]
	if got := order(t, orders); got != 1 {
		t.Errorf("load_order[orders]=%d, want 1", got)
	}
	if len(orders.DependsOn) != 0 {
		t.Errorf("depends_on[orders]=%v, want empty", orders.DependsOn)
	}
	if want := []string{"users"}; !reflect.DeepEqual(orders.UnresolvedReferences, want) {
		t.Errorf("unresolved_references[orders]=%v, want %v", orders.UnresolvedReferences, want)
	}
	if len(annotations["products"].UnresolvedReferences) != 0 {
		t.Errorf("unresolved_references[products]=%v, want empty", annotations["products"].UnresolvedReferences)
	}
}

func TestBuildGraph_SelfReferenceIgnored(t *testing.T) {
	t.Parallel()

	// employees.manager_id -> employees.id must not produce an edge or a
	// phantom cycle.
	annotations, err := BuildDependencyOrder([]contract.TableDescriptor{
		table("employees", "employees"),
	}, Abort)
	if err != nil {
		t.Fatalf("BuildDependencyOrder() err=%v, want nil", err)
	}
	emp := annotations["employees"]
	if got := order(t, emp); got != 1 {
		t.Errorf("load_order[employees]=%d, want 1", got)
	}
	if len(emp.DependsOn) != 0 || len(emp.UnresolvedReferences) != 0 {
		t.Errorf("self reference leaked: depends_on=%v unresolved=%v", emp.DependsOn, emp.UnresolvedReferences)
	}
}

func TestBuildGraph_DuplicateForeignKeysDeduped(t *testing.T) {
	t.Parallel()

	// Two distinct constraints to the same target count as one dependency.
	d := table("orders", "users")
	d.ForeignKeys = append(d.ForeignKeys, contract.ForeignKey{
		ConstraintName:  "fk_orders_owner",
		Columns:         []string{"owner_id"},
		ReferredTable:   "users",
		ReferredColumns: []string{"id"},
	})

	g := BuildGraph([]contract.TableDescriptor{d, table("users")})
	if got := g.DependsOn("orders"); !reflect.DeepEqual(got, []string{"users"}) {
		t.Fatalf("DependsOn(orders)=%v, want [users]", got)
	}
	if got := g.ReferencedBy("users"); !reflect.DeepEqual(got, []string{"orders"}) {
		t.Fatalf("ReferencedBy(users)=%v, want [orders]", got)
	}
}

func TestGraph_Tables(t *testing.T) {
	t.Parallel()

	g := BuildGraph([]contract.TableDescriptor{
		table("zebra"), table("apple", "zebra"), table("mango"),
	})
	if got, want := g.Tables(), []string{"apple", "mango", "zebra"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("Tables()=%v, want %v", got, want)
	}
}

func TestRank_Deterministic(t *testing.T) {
	t.Parallel()

	descriptors := []contract.TableDescriptor{
		table("t3", "t1", "t2"),
		table("t2"),
		table("t1"),
		table("t4", "t3"),
	}

	first, err := BuildGraph(descriptors).Rank()
	if err != nil {
		t.Fatalf("Rank() err=%v", err)
	}
	for i := 0; i < 20; i++ {
		again, err := BuildGraph(descriptors).Rank()
		if err != nil {
			t.Fatalf("Rank() err=%v", err)
		}
		if !reflect.DeepEqual(first, again) {
			t.Fatalf("Rank() not deterministic: %v vs %v", first, again)
		}
	}

	// Wave membership: t1 and t2 share the first wave.
	var wave1 []string
	for name, rank := range first {
		if rank == 1 {
			wave1 = append(wave1, name)
		}
	}
	sort.Strings(wave1)
	if want := []string{"t1", "t2"}; !reflect.DeepEqual(wave1, want) {
		t.Fatalf("first wave=%v, want %v", wave1, want)
	}
}
