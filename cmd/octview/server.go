package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/rs/cors"
	"github.com/zenazn/goji/web"

	"github.com/janelia-flyem/octview/octview"
	"github.com/janelia-flyem/octview/storage"
)

// tileServer serves a Badger tile store over HTTP.  Tiles travel in their
// serialized (compressed + checksummed) form; clients deserialize.
type tileServer struct {
	store *storage.BadgerStore
	meta  storage.DatasetMeta
}

func (ts *tileServer) handleInfo(w http.ResponseWriter, r *http.Request) {
	n, err := ts.store.NumTiles()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"data_id":    ts.meta.DataID,
		"base_shape": ts.meta.BaseShape,
		"tile_shape": ts.meta.TileShape,
		"num_tiles":  n,
	})
}

func (ts *tileServer) handleMetadata(w http.ResponseWriter, r *http.Request) {
	doc, err := ts.store.GetMetadata()
	if err != nil {
		http.Error(w, "no metadata stored", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write(doc)
}

// handleTile serves GET /api/tile/<scale>/<row>_<col>.
func (ts *tileServer) handleTile(c web.C, w http.ResponseWriter, r *http.Request) {
	scale, err := strconv.ParseUint(c.URLParams["scale"], 10, 8)
	if err != nil {
		http.Error(w, fmt.Sprintf("illegal tile scale: %v", err), http.StatusBadRequest)
		return
	}
	parts := strings.Split(c.URLParams["coord"], "_")
	if len(parts) != 2 {
		http.Error(w, "tile coordinate must be <row>_<col>", http.StatusBadRequest)
		return
	}
	row, err := strconv.ParseInt(parts[0], 10, 32)
	if err != nil {
		http.Error(w, fmt.Sprintf("illegal tile row: %v", err), http.StatusBadRequest)
		return
	}
	col, err := strconv.ParseInt(parts[1], 10, 32)
	if err != nil {
		http.Error(w, fmt.Sprintf("illegal tile col: %v", err), http.StatusBadRequest)
		return
	}

	key := storage.TileKey{Scale: uint8(scale), Row: int32(row), Col: int32(col)}
	serialized, err := ts.store.GetTileSerialized(key)
	if err != nil {
		if errors.Is(err, storage.ErrTileNotFound) {
			http.NotFound(w, r)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/octet-stream")
	w.Write(serialized)
}

// doServe runs the tile HTTP server until interrupted.
func doServe(args []string) error {
	c, err := loadConfig(args)
	if err != nil {
		return err
	}
	store, err := storage.NewBadgerStore(c.Store.Path)
	if err != nil {
		return err
	}
	defer store.Close()

	doc, err := store.GetMetadata()
	if err != nil {
		return fmt.Errorf("store has no dataset metadata; run ingest first: %v", err)
	}
	meta, err := storage.LoadDatasetMeta(doc)
	if err != nil {
		return err
	}
	ts := &tileServer{store: store, meta: meta}

	mux := web.New()
	mux.Get("/api/info", ts.handleInfo)
	mux.Get("/api/metadata", ts.handleMetadata)
	mux.Get("/api/tile/:scale/:coord", ts.handleTile)

	corsOptions := cors.Options{
		AllowedMethods: []string{http.MethodGet},
	}
	if len(c.Server.CorsDomains) > 0 {
		corsOptions.AllowedOrigins = c.Server.CorsDomains
	} else {
		corsOptions.AllowedOrigins = []string{"*"}
	}

	srv := &http.Server{
		Addr:        c.Server.HTTPAddress,
		Handler:     cors.New(corsOptions).Handler(mux),
		ReadTimeout: 1 * time.Hour,
	}

	stopSig := make(chan os.Signal, 1)
	signal.Notify(stopSig, syscall.SIGINT, syscall.SIGTERM)
	errCh := make(chan error, 1)
	go func() {
		octview.Infof("Web server listening at %s ...\n", srv.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case sig := <-stopSig:
		octview.Infof("Captured %v.  Shutting down...\n", sig)
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			octview.Errorf("error on server shutdown: %v\n", err)
		}
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			return err
		}
	}
	octview.KafkaShutdown()
	return nil
}
