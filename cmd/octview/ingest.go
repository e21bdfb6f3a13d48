package main

import (
	"context"
	"fmt"
	"runtime"
	"strconv"

	"golang.org/x/sync/errgroup"

	"github.com/janelia-flyem/octview/octree"
	"github.com/janelia-flyem/octview/octview"
	"github.com/janelia-flyem/octview/storage"
)

// doIngest populates a tile store with synthetic data for every level of
// the octree implied by the given base and tile shapes.  Useful for
// exercising streaming clients without a real imaging volume.
func doIngest(args []string) error {
	if len(args) != 4 {
		return fmt.Errorf("usage: ingest <config.toml> <rows> <cols> <tile size>")
	}
	c, err := loadConfig(args)
	if err != nil {
		return err
	}
	rows, err := strconv.Atoi(args[1])
	if err != nil {
		return fmt.Errorf("bad rows: %v", err)
	}
	cols, err := strconv.Atoi(args[2])
	if err != nil {
		return fmt.Errorf("bad cols: %v", err)
	}
	tileSize, err := strconv.Atoi(args[3])
	if err != nil {
		return fmt.Errorf("bad tile size: %v", err)
	}
	baseShape := octview.Shape2d{rows, cols}
	tileShape := octview.Shape2d{tileSize, tileSize}

	// Build a throwaway octree just for its level geometry.
	tree, err := octree.New(0, baseShape, tileShape)
	if err != nil {
		return err
	}

	store, err := storage.NewBadgerStore(c.Store.Path)
	if err != nil {
		return err
	}
	defer store.Close()

	meta := storage.NewDatasetMeta(baseShape, tileShape)
	doc, err := storage.MarshalDatasetMeta(meta)
	if err != nil {
		return err
	}
	if err := store.PutMetadata(doc); err != nil {
		return err
	}

	source := storage.SyntheticSource{TileShape: tileShape}
	timelog := octview.NewTimeLog()

	g, ctx := errgroup.WithContext(context.Background())
	g.SetLimit(runtime.NumCPU())
	var total int
	for _, level := range tree.Levels() {
		info := level.Info()
		for row := 0; row < info.GridShape.Rows(); row++ {
			for col := 0; col < info.GridShape.Cols(); col++ {
				key := storage.TileKey{
					Scale: uint8(info.LevelIndex),
					Row:   int32(row),
					Col:   int32(col),
				}
				total++
				g.Go(func() error {
					payload, err := source.GetTile(ctx, key)
					if err != nil {
						return err
					}
					return store.PutTile(key, payload)
				})
			}
		}
	}
	if err := g.Wait(); err != nil {
		return err
	}
	timelog.Infof("Ingested %d tiles across %d levels into %s (data id %s)",
		total, tree.NumLevels(), store, meta.DataID)
	return nil
}

// doInfo prints the stored dataset metadata and level geometry.
func doInfo(args []string) error {
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
		return fmt.Errorf("no dataset metadata in store: %v", err)
	}
	meta, err := storage.LoadDatasetMeta(doc)
	if err != nil {
		return err
	}
	base, tile := meta.Shapes()
	tree, err := octree.New(0, base, tile)
	if err != nil {
		return err
	}
	n, err := store.NumTiles()
	if err != nil {
		return err
	}

	fmt.Printf("data id:    %s\n", meta.DataID)
	fmt.Printf("base shape: %s\n", base)
	fmt.Printf("tile shape: %s\n", tile)
	fmt.Printf("levels:     %d\n", tree.NumLevels())
	fmt.Printf("tiles:      %d stored\n", n)
	for _, level := range tree.Levels() {
		fmt.Printf("  %s\n", level.Info())
	}
	return nil
}
