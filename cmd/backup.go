package cmd

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"guild-backup/core/reconcile"
	"guild-backup/core/snapshot"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	backupGuild     string
	backupCreator   string
	createChatlog   int
	loadChatlog     int
	copyChatlog     int
	backupTarget    string
	backupSource    string
	backupRequester string
	backupHard      bool
	backupRoles     bool
	backupChannels  bool
	backupBans      bool
	copyBans        bool
	backupMatch     string
	backupLimit     int
	yesConfirm      bool
)

// backupCmd is the parent command for all backup operations.
var backupCmd = &cobra.Command{
	Use:   "backup",
	Short: "Create, inspect and load guild backups",
}

var backupCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Capture a guild into a new backup",
	Example: `  backup create --guild 410488579140354049 --creator 386490806716071946
  backup create --guild 410488579140354049 --chatlog 0`,
	RunE: runBackupCreate,
}

var backupLoadCmd = &cobra.Command{
	Use:   "load <backup-id>",
	Short: "Replay a backup onto a guild",
	Long: `Replay a backup onto a target guild.

By default existing roles and channels that match the backup are reused and
anything unmatched is removed. --hard deletes everything first.`,
	Example: `  backup load 6f1c... --target 410488579140354049
  backup load 6f1c... --target 410488579140354049 --hard --yes
  backup load 6f1c... --target 410488579140354049 --bans=false --chatlog 0`,
	Args: cobra.ExactArgs(1),
	RunE: runBackupLoad,
}

var backupCopyCmd = &cobra.Command{
	Use:   "copy",
	Short: "Rebuild a guild from another live guild",
	Long: `Copy roles, channels, recent messages and settings from a live source guild.
The target is cleared first.`,
	RunE: runBackupCopy,
}

var backupInfoCmd = &cobra.Command{
	Use:   "info <backup-id>",
	Short: "Show a backup's summary, channel tree and roles",
	Args:  cobra.ExactArgs(1),
	RunE:  runBackupInfo,
}

var backupListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored backups",
	RunE:  runBackupList,
}

var backupDeleteCmd = &cobra.Command{
	Use:   "delete <backup-id>",
	Short: "Delete a backup",
	Args:  cobra.ExactArgs(1),
	RunE:  runBackupDelete,
}

var backupMembersCmd = &cobra.Command{
	Use:   "members <backup-id>",
	Short: "Export a backup's member list to storage",
	Args:  cobra.ExactArgs(1),
	RunE:  runBackupMembers,
}

func init() {
	backupCreateCmd.Flags().StringVar(&backupGuild, "guild", "", "Guild to capture")
	backupCreateCmd.Flags().StringVar(&backupCreator, "creator", "", "User recorded as the creator")
	backupCreateCmd.Flags().IntVar(&createChatlog, "chatlog", 0, "Messages captured per channel (0 uses the configured depth, negative disables)")
	_ = backupCreateCmd.MarkFlagRequired("guild")

	backupLoadCmd.Flags().StringVar(&backupTarget, "target", "", "Guild to load into")
	backupLoadCmd.Flags().StringVar(&backupRequester, "requester", "", "User that asked for the load; never banned")
	backupLoadCmd.Flags().BoolVar(&backupHard, "hard", false, "Delete existing roles and channels first")
	backupLoadCmd.Flags().IntVar(&loadChatlog, "chatlog", -1, "Messages replayed per channel (-1 uses the configured depth)")
	backupLoadCmd.Flags().BoolVar(&backupRoles, "roles", true, "Load roles")
	backupLoadCmd.Flags().BoolVar(&backupChannels, "channels", true, "Load categories and channels")
	backupLoadCmd.Flags().BoolVar(&backupBans, "bans", true, "Load bans")
	backupLoadCmd.Flags().StringVar(&backupMatch, "match", "count", "Overwrite matching for reuse: count or content")
	backupLoadCmd.Flags().BoolVar(&yesConfirm, "yes", false, "Auto-confirm destructive actions (non-interactive)")
	_ = backupLoadCmd.MarkFlagRequired("target")

	backupCopyCmd.Flags().StringVar(&backupSource, "source", "", "Guild to copy from")
	backupCopyCmd.Flags().StringVar(&backupTarget, "target", "", "Guild to rebuild")
	backupCopyCmd.Flags().IntVar(&copyChatlog, "chatlog", 0, "Messages relayed per channel (0 uses the configured depth, negative disables)")
	backupCopyCmd.Flags().BoolVar(&copyBans, "bans", false, "Copy the ban list")
	backupCopyCmd.Flags().BoolVar(&yesConfirm, "yes", false, "Auto-confirm destructive actions (non-interactive)")
	_ = backupCopyCmd.MarkFlagRequired("source")
	_ = backupCopyCmd.MarkFlagRequired("target")

	backupInfoCmd.Flags().IntVar(&backupLimit, "limit", 1024, "Character budget of each preview")
	backupListCmd.Flags().StringVar(&backupGuild, "guild", "", "Only list backups of this guild")

	backupCmd.AddCommand(backupCreateCmd, backupLoadCmd, backupCopyCmd, backupInfoCmd,
		backupListCmd, backupDeleteCmd, backupMembersCmd)
	RootCmd.AddCommand(backupCmd)
}

func runBackupCreate(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	rt, err := bootstrap(ctx, true)
	if err != nil {
		return err
	}
	defer rt.logger.Sync()

	res, err := rt.service.Create(ctx, backupGuild, backupCreator, createChatlog)
	if err != nil {
		return err
	}
	for _, s := range res.Skipped {
		rt.logger.Warn("Skipped entity", zap.String("kind", s.Kind), zap.String("id", s.ID), zap.String("reason", s.Reason))
	}
	fmt.Println(res.Record.ID)
	return nil
}

func runBackupLoad(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	rt, err := bootstrap(ctx, true)
	if err != nil {
		return err
	}
	defer rt.logger.Sync()

	policy, err := reconcile.ParseMatchPolicy(backupMatch)
	if err != nil {
		return err
	}
	opts := rt.service.DefaultLoadOptions()
	opts.ClearFirst = backupHard
	opts.Requester = backupRequester
	opts.OverwriteMatch = policy
	opts.Sections = reconcile.Sections{Roles: backupRoles, Channels: backupChannels, Bans: backupBans}
	if loadChatlog >= 0 {
		opts.ChatlogDepth = loadChatlog
	}

	// Merge mode deletes unmatched entities as well.
	if !confirmDestructiveAction(fmt.Sprintf("load %s into %s", args[0], backupTarget)) {
		rt.logger.Warn("Operation cancelled by user. No changes were made.")
		return nil
	}

	report, err := rt.service.Load(ctx, args[0], backupTarget, opts)
	if report != nil {
		printReport(rt.logger, report)
	}
	return err
}

func runBackupCopy(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	rt, err := bootstrap(ctx, true)
	if err != nil {
		return err
	}
	defer rt.logger.Sync()

	if !confirmDestructiveAction(fmt.Sprintf("clear %s and copy %s onto it", backupTarget, backupSource)) {
		rt.logger.Warn("Operation cancelled by user. No changes were made.")
		return nil
	}

	report, ids, err := rt.service.Copy(ctx, backupSource, backupTarget, reconcile.CopyOptions{
		ChatlogDepth: copyChatlog,
		Bans:         copyBans,
	})
	if report != nil {
		printReport(rt.logger, report)
		rt.logger.Info("Translated ids", zap.Int("count", len(ids)))
	}
	return err
}

func runBackupInfo(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	rt, err := bootstrap(ctx, true)
	if err != nil {
		return err
	}
	defer rt.logger.Sync()

	_, snap, err := rt.service.Get(ctx, args[0])
	if err != nil {
		return err
	}
	printViews(snap, backupLimit)
	return nil
}

func runBackupList(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	rt, err := bootstrap(ctx, true)
	if err != nil {
		return err
	}
	defer rt.logger.Sync()

	recs, err := rt.service.List(ctx, backupGuild)
	if err != nil {
		return err
	}
	for _, r := range recs {
		fmt.Printf("%s  %s  %-24s  %8d bytes  %s\n", r.ID, r.GuildID, r.GuildName, r.SizeBytes, r.CreatedAt.Format("2006-01-02 15:04"))
	}
	return nil
}

func runBackupDelete(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	rt, err := bootstrap(ctx, true)
	if err != nil {
		return err
	}
	defer rt.logger.Sync()
	return rt.service.Delete(ctx, args[0])
}

func runBackupMembers(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	rt, err := bootstrap(ctx, true)
	if err != nil {
		return err
	}
	defer rt.logger.Sync()

	key, err := rt.service.ExportMembers(ctx, args[0])
	if err != nil {
		return err
	}
	fmt.Println(key)
	return nil
}

// printViews writes the summary and both previews of snap to stdout.
func printViews(snap *snapshot.Snapshot, limit int) {
	s := snap.Summary()
	fmt.Printf("Guild:     %s (%s)\n", s.GuildName, s.GuildID)
	fmt.Printf("Created:   %s by %s\n", s.CreatedAt.Format("2006-01-02 15:04 MST"), s.Creator)
	fmt.Printf("Members:   %d\n", s.Members)
	fmt.Printf("Bans:      %d\n", s.Bans)
	fmt.Printf("Roles:     %d\n", s.Roles)
	fmt.Printf("Channels:  %d in %d categories\n", s.Channels, s.Categories)
	fmt.Printf("Chatlog:   %d\n\n", s.ChatlogDepth)
	fmt.Println("Channels")
	fmt.Println(snap.ChannelTree(limit))
	fmt.Println("Roles")
	fmt.Println(snap.RoleList(limit))
}

// printReport logs the summary of a run and every failed or skipped entity.
func printReport(l *zap.Logger, report *reconcile.Report) {
	s := report.Summary
	l.Info("Run report",
		zap.Int("created", s.Created),
		zap.Int("reused", s.Reused),
		zap.Int("edited", s.Edited),
		zap.Int("deleted", s.Deleted),
		zap.Int("moved", s.Moved),
		zap.Int("skipped", s.Skipped),
		zap.Int("failed", s.Failed),
	)
	for _, o := range report.Outcomes {
		if o.Action != reconcile.ActionFailed && o.Action != reconcile.ActionSkipped {
			continue
		}
		l.Warn("Entity not applied",
			zap.String("kind", string(o.Kind)),
			zap.String("action", string(o.Action)),
			zap.String("source_id", o.SourceID),
			zap.String("reason", o.Reason),
		)
	}
}

// confirmDestructiveAction prompts the user for confirmation or uses --yes flag.
func confirmDestructiveAction(what string) bool {
	if yesConfirm {
		fmt.Println("\n✓ Auto-confirmed via --yes flag")
		return true
	}

	fmt.Printf("\n⚠️  About to %s. Type 'yes' to confirm: ", what)
	reader := bufio.NewReader(os.Stdin)
	response, err := reader.ReadString('\n')
	if err != nil {
		return false
	}

	return strings.TrimSpace(response) == "yes"
}

