// Command debug_snapshot prints every summary view of a snapshot document.
//
//	debug_snapshot backup.json              read a local file
//	debug_snapshot -object backups/x.json   read from the configured bucket
//	debug_snapshot -list                    list documents in the bucket
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"

	"guild-backup/core/config"
	"guild-backup/core/snapshot"
	"guild-backup/core/storage"

	"github.com/minio/minio-go/v7"
)

func main() {
	object := flag.String("object", "", "Object key to read from storage")
	list := flag.Bool("list", false, "List snapshot documents in storage")
	limit := flag.Int("limit", 1024, "Character budget of each preview")
	flag.Parse()

	ctx := context.Background()

	if *list || *object != "" {
		cfg, err := config.LoadConfig(".")
		if err != nil {
			log.Fatal(err)
		}
		client, err := storage.NewClient(cfg.Storage)
		if err != nil {
			log.Fatal(err)
		}

		if *list {
			opts := minio.ListObjectsOptions{Prefix: cfg.Backup.ObjectPrefix, Recursive: true}
			for obj := range client.ListObjects(ctx, cfg.Storage.Bucket, opts) {
				if obj.Err != nil {
					log.Fatal(obj.Err)
				}
				fmt.Printf("%-60s %10d  %s\n", obj.Key, obj.Size, obj.LastModified.Format("2006-01-02 15:04"))
			}
			return
		}

		r, err := client.GetObject(ctx, cfg.Storage.Bucket, *object, minio.GetObjectOptions{})
		if err != nil {
			log.Fatal(err)
		}
		defer r.Close()
		show(r, *limit)
		return
	}

	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: debug_snapshot [-limit n] <file> | -object <key> | -list")
		os.Exit(2)
	}
	f, err := os.Open(flag.Arg(0))
	if err != nil {
		log.Fatal(err)
	}
	defer f.Close()
	show(f, *limit)
}

func show(r io.Reader, limit int) {
	data, err := io.ReadAll(r)
	if err != nil {
		log.Fatal(err)
	}
	snap, err := snapshot.Unmarshal(data)
	if err != nil {
		log.Fatal(err)
	}

	s := snap.Summary()
	fmt.Printf("=== %s (%s) ===\n", s.GuildName, s.GuildID)
	fmt.Printf("version %d, created %s by %s\n", snap.Version, s.CreatedAt.Format("2006-01-02 15:04 MST"), s.Creator)
	fmt.Printf("members %d, bans %d, roles %d, categories %d, channels %d, chatlog %d\n\n",
		s.Members, s.Bans, s.Roles, s.Categories, s.Channels, s.ChatlogDepth)
	fmt.Println(snap.ChannelTree(limit))
	fmt.Println(snap.RoleList(limit))

	for _, ch := range snap.TextChannels {
		fmt.Printf("#%s: %d messages, %d webhooks\n", ch.Name, len(ch.Messages), len(ch.Webhooks))
	}
}
