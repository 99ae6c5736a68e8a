package entry

import (
	"reflect"
	"testing"
)

const base = "file:///catalogs/catalog.xml"

func TestNewSystemResolvesURI(t *testing.T) {
	e, err := NewSystem(base, "s1", "urn:x", "local.dtd")
	if err != nil {
		t.Fatalf("NewSystem() error = %v", err)
	}
	if e.URI != "file:///catalogs/local.dtd" {
		t.Fatalf("URI = %q, want %q", e.URI, "file:///catalogs/local.dtd")
	}
	if e.Kind() != KindSystem {
		t.Fatalf("Kind() = %s, want system", e.Kind())
	}
	if e.ID() != "s1" || e.BaseURI() != base {
		t.Fatalf("header = (%q, %q)", e.ID(), e.BaseURI())
	}
}

func TestRelativeBaseRejected(t *testing.T) {
	if _, err := NewSystem("catalog.xml", "", "urn:x", "local.dtd"); err == nil {
		t.Fatalf("expected error for relative base")
	}
	if _, err := NewGroup("", "", true); err == nil {
		t.Fatalf("expected error for empty base")
	}
	if _, err := NewNull("relative", "bogus"); err == nil {
		t.Fatalf("expected error for relative null base")
	}
}

func TestNewPublicNormalizes(t *testing.T) {
	e, err := NewPublic(base, "", "  -//A//DTD  X//EN ", "x.dtd", true)
	if err != nil {
		t.Fatalf("NewPublic() error = %v", err)
	}
	if e.PublicID != "-//A//DTD X//EN" {
		t.Fatalf("PublicID = %q", e.PublicID)
	}
	if !e.PreferPublic {
		t.Fatalf("PreferPublic = false, want true")
	}
}

func TestKindsOfSharedShapes(t *testing.T) {
	rs, _ := NewRewriteSystem(base, "", "http://a/", "sys/")
	ru, _ := NewRewriteURI(base, "", "http://a/", "uri/")
	ss, _ := NewSystemSuffix(base, "", ".dtd", "x.dtd")
	us, _ := NewURISuffix(base, "", ".xsd", "x.xsd")
	ds, _ := NewDelegateSystem(base, "", "urn:x:", "d.xml")
	dp, _ := NewDelegatePublic(base, "", "-//A//", "d.xml", false)
	du, _ := NewDelegateURI(base, "", "urn:y:", "d.xml")
	got := []Kind{rs.Kind(), ru.Kind(), ss.Kind(), us.Kind(), ds.Kind(), dp.Kind(), du.Kind()}
	want := []Kind{KindRewriteSystem, KindRewriteURI, KindSystemSuffix, KindURISuffix, KindDelegateSystem, KindDelegatePublic, KindDelegateURI}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("kinds = %v, want %v", got, want)
	}
	if rs.RewritePrefix != "file:///catalogs/sys/" {
		t.Fatalf("RewritePrefix = %q", rs.RewritePrefix)
	}
	if ds.CatalogURI != "file:///catalogs/d.xml" {
		t.Fatalf("CatalogURI = %q", ds.CatalogURI)
	}
}

func TestNewNamed(t *testing.T) {
	d, err := NewNamed(KindDTDDecl, base, "", " -//A//  B//EN", "x.dcl", false)
	if err != nil {
		t.Fatalf("NewNamed() error = %v", err)
	}
	if d.Name != "-//A// B//EN" {
		t.Fatalf("Name = %q", d.Name)
	}
	if _, err := NewNamed(KindSystem, base, "", "x", "y", false); err == nil {
		t.Fatalf("expected error for non-named kind")
	}
}

func TestPropertiesRejectInvalidKeys(t *testing.T) {
	e, _ := NewURI(base, "", "http://x/", "x.xml", "", "")
	props := e.Properties()
	if !props.Set("etag", `"abc"`) {
		t.Fatalf("Set(etag) rejected")
	}
	if props.Set("bad key", "v") {
		t.Fatalf("Set(bad key) accepted")
	}
	if props.Set("", "v") {
		t.Fatalf("Set(empty) accepted")
	}
	if v, ok := props.Get("etag"); !ok || v != `"abc"` {
		t.Fatalf("Get(etag) = %q, %v", v, ok)
	}
	if _, ok := props.Get("bad key"); ok {
		t.Fatalf("invalid key was stored")
	}
	props.Set("contentType", "text/xml")
	if got := props.Keys(); !reflect.DeepEqual(got, []string{"contentType", "etag"}) {
		t.Fatalf("Keys() = %v", got)
	}
	props.Delete("etag")
	if _, ok := props.Get("etag"); ok {
		t.Fatalf("etag still present after Delete")
	}
}

func TestKindByName(t *testing.T) {
	for i := 0; i < KindCount; i++ {
		k := Kind(i)
		got, ok := KindByName(k.String())
		if !ok || got != k {
			t.Fatalf("KindByName(%q) = %v, %v", k.String(), got, ok)
		}
	}
	if _, ok := KindByName("bogus"); ok {
		t.Fatalf("KindByName(bogus) ok")
	}
}
