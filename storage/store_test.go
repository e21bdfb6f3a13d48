package storage

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/janelia-flyem/octview/chunks"
	"github.com/janelia-flyem/octview/octree"
	"github.com/janelia-flyem/octview/octview"
)

func TestTileKeyRoundTrip(t *testing.T) {
	keys := []TileKey{
		{Scale: 0, Row: 0, Col: 0},
		{Scale: 3, Row: 15, Col: 7},
		{Scale: 255, Row: 1 << 20, Col: 42},
	}
	for _, k := range keys {
		decoded, err := DecodeTileKey(k.Bytes())
		if err != nil {
			t.Fatalf("decode %s: %v", k, err)
		}
		if decoded != k {
			t.Errorf("round trip mismatch: %s vs %s", k, decoded)
		}
	}
	if _, err := DecodeTileKey([]byte{1, 2, 3}); err == nil {
		t.Error("short key should fail to decode")
	}
}

func TestBadgerStoreRoundTrip(t *testing.T) {
	store, err := NewBadgerStore(t.TempDir())
	if err != nil {
		t.Fatalf("unable to open badger store: %v", err)
	}
	defer store.Close()

	key := TileKey{Scale: 2, Row: 1, Col: 3}
	payload := make([]byte, 256*256)
	for i := range payload {
		payload[i] = byte(i % 253)
	}
	if err := store.PutTile(key, payload); err != nil {
		t.Fatalf("put tile: %v", err)
	}

	got, err := store.GetTile(context.Background(), key)
	if err != nil {
		t.Fatalf("get tile: %v", err)
	}
	if string(got) != string(payload) {
		t.Fatal("payload corrupted through serialize/store/deserialize")
	}

	if _, err := store.GetTile(context.Background(), TileKey{Scale: 9}); !errors.Is(err, ErrTileNotFound) {
		t.Errorf("missing tile should return ErrTileNotFound, got %v", err)
	}

	n, err := store.NumTiles()
	if err != nil {
		t.Fatalf("count tiles: %v", err)
	}
	if n != 1 {
		t.Errorf("expected 1 stored tile, got %d", n)
	}

	meta := NewDatasetMeta(octview.Shape2d{4096, 4096}, octview.Shape2d{256, 256})
	doc, err := MarshalDatasetMeta(meta)
	if err != nil {
		t.Fatalf("marshal meta: %v", err)
	}
	if err := store.PutMetadata(doc); err != nil {
		t.Fatalf("put metadata: %v", err)
	}
	stored, err := store.GetMetadata()
	if err != nil {
		t.Fatalf("get metadata: %v", err)
	}
	loaded, err := LoadDatasetMeta(stored)
	if err != nil {
		t.Fatalf("load metadata: %v", err)
	}
	if loaded != meta {
		t.Errorf("metadata round trip mismatch: %+v vs %+v", loaded, meta)
	}
}

func TestDatasetMetaValidation(t *testing.T) {
	bad := [][]byte{
		[]byte(`{`),
		[]byte(`{"data_id": "x", "base_shape": [4096, 4096]}`),
		[]byte(`{"data_id": "", "base_shape": [4096, 4096], "tile_shape": [256, 256]}`),
		[]byte(`{"data_id": "x", "base_shape": [0, 4096], "tile_shape": [256, 256]}`),
		[]byte(`{"data_id": "x", "base_shape": [4096], "tile_shape": [256, 256]}`),
	}
	for i, doc := range bad {
		if _, err := LoadDatasetMeta(doc); err == nil {
			t.Errorf("document %d should fail validation", i)
		}
	}

	good := []byte(`{"data_id": "mygrayscale", "base_shape": [3000, 10000], "tile_shape": [512, 512]}`)
	meta, err := LoadDatasetMeta(good)
	if err != nil {
		t.Fatalf("valid document rejected: %v", err)
	}
	base, tile := meta.Shapes()
	if base != (octview.Shape2d{3000, 10000}) || tile != (octview.Shape2d{512, 512}) {
		t.Errorf("bad shapes: %s %s", base, tile)
	}
}

func TestSourceFetcherRouting(t *testing.T) {
	mem := NewMemoryStore()
	mem.PutTile(TileKey{Scale: 1, Row: 2, Col: 3}, []byte("tile data"))

	fetcher := NewSourceFetcher()
	fetcher.AddSource("mydata", mem)
	defer fetcher.Close()

	key := chunks.Key{
		DataID:   "mydata",
		Location: octree.Location{SliceID: 1, Level: 1, Row: 2, Col: 3},
	}
	payload, err := fetcher.Fetch(context.Background(), key)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if string(payload) != "tile data" {
		t.Errorf("bad payload: %q", payload)
	}

	key.DataID = "unregistered"
	if _, err := fetcher.Fetch(context.Background(), key); err == nil {
		t.Error("unregistered data id should fail")
	}
}

func TestHTTPSource(t *testing.T) {
	payload := []byte("remote tile")
	serialized, err := octview.SerializeData(payload, octview.Snappy, octview.CRC32)
	if err != nil {
		t.Fatalf("serialize: %v", err)
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/tile/2/1_3":
			w.Write(serialized)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	src := NewHTTPSource(srv.URL)
	defer src.Close()

	got, err := src.GetTile(context.Background(), TileKey{Scale: 2, Row: 1, Col: 3})
	if err != nil {
		t.Fatalf("get tile: %v", err)
	}
	if string(got) != string(payload) {
		t.Errorf("bad payload: %q", got)
	}

	if _, err := src.GetTile(context.Background(), TileKey{Scale: 0, Row: 0, Col: 0}); !errors.Is(err, ErrTileNotFound) {
		t.Errorf("404 should map to ErrTileNotFound, got %v", err)
	}
}

func TestSyntheticSourceDeterminism(t *testing.T) {
	src := SyntheticSource{TileShape: octview.Shape2d{64, 64}}
	a, _ := src.GetTile(context.Background(), TileKey{Scale: 1, Row: 2, Col: 3})
	b, _ := src.GetTile(context.Background(), TileKey{Scale: 1, Row: 2, Col: 3})
	c, _ := src.GetTile(context.Background(), TileKey{Scale: 1, Row: 2, Col: 4})
	if string(a) != string(b) {
		t.Error("same key should generate identical payloads")
	}
	if string(a) == string(c) {
		t.Error("different keys should generate different payloads")
	}
	if len(a) != 64*64 {
		t.Errorf("payload should be tile-sized, got %d", len(a))
	}
}
