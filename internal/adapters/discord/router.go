package discord

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/Keburichi/excelbot/internal/app/service"
	"github.com/Keburichi/excelbot/internal/infra/storage"
)

// randomGuessDeadline bounds the luckydip draw loop. Well under Discord's
// 15-minute followup window; the loop can spin forever on a used-only pool.
const randomGuessDeadline = 5 * time.Second

type Router struct {
	s       *discordgo.Session
	guildID string

	lottery *service.LotteryService
	members *service.MemberService
	verify  *service.VerifyService
	sync    *service.SyncService
}

func NewRouter(
	s *discordgo.Session,
	guildID string,
	lottery *service.LotteryService,
	members *service.MemberService,
	verify *service.VerifyService,
	syncer *service.SyncService,
) *Router {
	return &Router{
		s:       s,
		guildID: guildID,
		lottery: lottery,
		members: members,
		verify:  verify,
		sync:    syncer,
	}
}

func (r *Router) Register() error {
	appID := r.s.State.User.ID
	for _, cmd := range Commands {
		if _, err := r.s.ApplicationCommandCreate(appID, r.guildID, cmd); err != nil {
			return err
		}
	}
	return nil
}

func (r *Router) Handlers() {
	r.s.AddHandler(func(s *discordgo.Session, ic *discordgo.InteractionCreate) {
		if ic.Type != discordgo.InteractionApplicationCommand {
			return
		}
		data := ic.ApplicationCommandData()
		log.Printf("slash: /%s by=%s guild=%s", data.Name, ic.Member.User.ID, ic.GuildID)

		defer func() {
			if rec := recover(); rec != nil {
				log.Printf("panic in slash /%s: %v", data.Name, rec)
				ReplyEphemeral(s, ic, "⚠️ Something went wrong handling that command.")
			}
		}()

		_ = DeferEphemeral(s, ic)
		ctx, cancel := context.WithTimeout(context.Background(), 12*time.Second)
		defer cancel()

		switch data.Name {
		case "lottery":
			r.handleLottery(ctx, s, ic)
		case "verify":
			r.handleVerify(ctx, s, ic)
		case "sub":
			r.handleSub(ctx, s, ic)
		case "roles":
			r.handleRoles(ctx, s, ic)
		case "sync":
			r.handleSync(ctx, s, ic)
		}
	})
}

func (r *Router) handleLottery(ctx context.Context, s *discordgo.Session, ic *discordgo.InteractionCreate) {
	sub, ok := subcmdName(ic)
	if !ok {
		ReplyEphemeral(s, ic, "Use `/lottery guess`, `/lottery luckydip` or `/lottery view`.")
		return
	}
	callerID := ic.Member.User.ID

	switch sub {
	case "guess":
		n, _ := optInt(ic, "number")
		out, err := r.lottery.Guess(ctx, callerID, n)
		if err != nil {
			ReplyEphemeral(s, ic, "⚠️ Could not register your guess: "+err.Error())
			return
		}
		ReplyEphemeral(s, ic, guessOutcomeText(out))

	case "luckydip":
		v, _ := optStr(ic, "pool")
		pool := guessPool(v)
		drawCtx, cancel := context.WithTimeout(ctx, randomGuessDeadline)
		defer cancel()
		out, err := r.lottery.RandomGuess(drawCtx, callerID, pool)
		if err != nil {
			ReplyEphemeral(s, ic, "⚠️ Could not register your guess: "+err.Error())
			return
		}
		ReplyEphemeral(s, ic, guessOutcomeText(out))

	case "change":
		from, _ := optInt(ic, "from")
		to, _ := optInt(ic, "to")
		out, err := r.lottery.ChangeGuess(ctx, callerID, from, to)
		if err != nil {
			ReplyEphemeral(s, ic, "⚠️ Could not change your guess: "+err.Error())
			return
		}
		ReplyEphemeral(s, ic, guessOutcomeText(out))

	case "whoguessed":
		n, _ := optInt(ic, "number")
		ids, err := r.lottery.WhoGuessed(ctx, n)
		if err != nil {
			ReplyEphemeral(s, ic, "⚠️ Could not look that up: "+err.Error())
			return
		}
		if len(ids) == 0 {
			ReplyEphemeral(s, ic, fmt.Sprintf("Nobody has guessed %d yet.", n))
			return
		}
		ReplyEphemeral(s, ic, fmt.Sprintf("%d was guessed by %s.", n, prettyJoinMentions(ids)))

	case "view":
		v, err := r.lottery.View(ctx, callerID)
		if err != nil {
			ReplyEphemeral(s, ic, "⚠️ Could not fetch your guesses: "+err.Error())
			return
		}
		ReplyEphemeral(s, ic, viewText(v))

	case "unused":
		ns, err := r.lottery.UnusedNumbers(ctx)
		if err != nil {
			ReplyEphemeral(s, ic, "⚠️ Could not fetch the unused numbers: "+err.Error())
			return
		}
		if len(ns) == 0 {
			ReplyEphemeral(s, ic, "Every number has been picked!")
			return
		}
		ReplyEphemeral(s, ic, "Unused numbers: "+joinInts(ns))

	case "run":
		out, err := r.lottery.RunLottery(ctx, callerID)
		if err != nil {
			ReplyEphemeral(s, ic, "⚠️ The draw failed: "+err.Error())
			return
		}
		if !out.Allowed {
			ReplyEphemeral(s, ic, "Only officers can run the lottery.")
			return
		}
		ReplyEphemeral(s, ic, fmt.Sprintf("✅ Lottery drawn: **%d**. %d winner(s).", out.WinningNumber, len(out.Winners)))

	case "remind":
		out, err := r.lottery.Remind(ctx, callerID)
		if err != nil {
			ReplyEphemeral(s, ic, "⚠️ Could not send reminders: "+err.Error())
			return
		}
		if !out.Allowed {
			ReplyEphemeral(s, ic, "Only officers can send reminders.")
			return
		}
		ReplyEphemeral(s, ic, remindSummary(out))

	case "award":
		usersRaw, _ := optStr(ic, "users")
		reason, _ := optStr(ic, "reason")
		targets := parseIDs(usersRaw)
		out, err := r.lottery.TryAwardUsers(ctx, callerID, reason, targets)
		if err != nil {
			ReplyEphemeral(s, ic, "⚠️ Could not award guesses: "+err.Error())
			return
		}
		switch out.Kind {
		case service.AwardNotAllowed:
			ReplyEphemeral(s, ic, "Only officers can award extra guesses.")
		case service.AwardNoTargets:
			ReplyEphemeral(s, ic, "Pass mentions or IDs in `users`.")
		case service.AwardNotEligible:
			ReplyEphemeral(s, ic, "None of those users are FC members.")
		case service.AwardSuccess:
			if err := r.lottery.AwardUsers(ctx, out); err != nil {
				ReplyEphemeral(s, ic, "⚠️ Could not award guesses: "+err.Error())
				return
			}
			msg := fmt.Sprintf("✅ Awarded an extra guess to %s.", prettyJoinMentions(out.IDs))
			if len(out.Rejected) > 0 {
				msg += fmt.Sprintf(" Skipped %s (not FC members).", prettyJoinMentions(out.Rejected))
			}
			ReplyEphemeral(s, ic, msg)
		}
	}
}

func (r *Router) handleVerify(ctx context.Context, s *discordgo.Session, ic *discordgo.InteractionCreate) {
	sub, ok := subcmdName(ic)
	if !ok {
		ReplyEphemeral(s, ic, "Use `/verify begin` or `/verify complete`.")
		return
	}
	callerID := ic.Member.User.ID

	switch sub {
	case "begin":
		token, err := r.verify.Begin(ctx, callerID)
		if err == storage.ErrNotFound {
			ReplyEphemeral(s, ic, "You are not in the member directory yet. Try again after the next roster sync.")
			return
		}
		if err != nil {
			ReplyEphemeral(s, ic, "⚠️ Could not start verification: "+err.Error())
			return
		}
		ReplyEphemeral(s, ic, "Put this token anywhere in your Lodestone character bio, then run `/verify complete`:\n```"+token+"```")

	case "complete":
		lodestoneID, _ := optStr(ic, "lodestone_id")
		matched, err := r.verify.Complete(ctx, callerID, lodestoneID)
		if err != nil {
			ReplyEphemeral(s, ic, "⚠️ Could not verify your character: "+err.Error())
			return
		}
		if !matched {
			ReplyEphemeral(s, ic, "I couldn't find your token in that character's bio. Check the ID, save your bio and try again. Run `/verify begin` if you need a fresh token.")
			return
		}
		ReplyEphemeral(s, ic, "✅ Character linked! Your raid clears will start syncing shortly.")
	}
}

func (r *Router) handleSub(ctx context.Context, s *discordgo.Session, ic *discordgo.InteractionCreate) {
	subbed, _ := optBool(ic, "subscribed")
	if err := r.members.SetSubscribed(ctx, ic.Member.User.ID, subbed); err != nil {
		ReplyEphemeral(s, ic, "⚠️ Could not update your subscription: "+err.Error())
		return
	}
	if subbed {
		ReplyEphemeral(s, ic, "✅ You will be pinged for events.")
	} else {
		ReplyEphemeral(s, ic, "✅ You will no longer be pinged for events.")
	}
}

func (r *Router) handleRoles(ctx context.Context, s *discordgo.Session, ic *discordgo.InteractionCreate) {
	if !r.isAdmin(ctx, ic.Member.User.ID) {
		ReplyEphemeral(s, ic, "Only officers can manage role flags.")
		return
	}
	sub, ok := subcmdName(ic)
	if !ok {
		ReplyEphemeral(s, ic, "Use `/roles list` or `/roles flag`.")
		return
	}

	switch sub {
	case "list":
		roles, err := r.members.Roles(ctx)
		if err != nil {
			ReplyEphemeral(s, ic, "⚠️ Could not list roles: "+err.Error())
			return
		}
		if len(roles) == 0 {
			ReplyEphemeral(s, ic, "No roles known yet. Run `/sync directory` first.")
			return
		}
		var b strings.Builder
		b.WriteString("Known roles:\n")
		for _, role := range roles {
			flags := ""
			if role.IsAdmin {
				flags += " [officer]"
			}
			if role.IsMember {
				flags += " [member]"
			}
			fmt.Fprintf(&b, "<@&%s> %s%s\n", role.DiscordRoleID, role.Name, flags)
		}
		ReplyEphemeral(s, ic, b.String())

	case "flag":
		roleID, ok := optRoleID(ic, "role")
		if !ok {
			ReplyEphemeral(s, ic, "Pick a role.")
			return
		}
		admin, _ := optBool(ic, "admin")
		member, _ := optBool(ic, "member")
		if err := r.members.SetRoleFlags(ctx, roleID, admin, member); err != nil {
			ReplyEphemeral(s, ic, "⚠️ Could not update the role: "+err.Error())
			return
		}
		ReplyEphemeral(s, ic, fmt.Sprintf("✅ <@&%s> updated: officer=%t, member=%t.", roleID, admin, member))
	}
}

func (r *Router) handleSync(ctx context.Context, s *discordgo.Session, ic *discordgo.InteractionCreate) {
	if !r.isAdmin(ctx, ic.Member.User.ID) {
		ReplyEphemeral(s, ic, "Only officers can trigger syncs.")
		return
	}
	sub, ok := subcmdName(ic)
	if !ok {
		ReplyEphemeral(s, ic, "Use `/sync directory`, `/sync fights` or `/sync activity`.")
		return
	}

	switch sub {
	case "directory":
		res, err := r.members.ImportDirectory(ctx)
		if err != nil {
			ReplyEphemeral(s, ic, "⚠️ Directory sync failed: "+err.Error())
			return
		}
		ReplyEphemeral(s, ic, fmt.Sprintf("✅ Directory synced: %d members, %d roles, %d removed.",
			res.MembersUpserted, res.RolesUpserted, res.MembersRemoved))

	case "fights":
		res, err := r.sync.ImportFights(ctx)
		if err != nil {
			ReplyEphemeral(s, ic, "⚠️ Fight import failed: "+err.Error())
			return
		}
		if res.Skipped {
			ReplyEphemeral(s, ic, "The fight catalog was already imported today.")
			return
		}
		ReplyEphemeral(s, ic, fmt.Sprintf("✅ Fight catalog refreshed: %d processed, %d added.", res.Processed, res.Created))

	case "activity":
		res, err := r.sync.SyncMemberActivity(ctx)
		if err != nil {
			ReplyEphemeral(s, ic, "⚠️ Activity sync failed: "+err.Error())
			return
		}
		msg := fmt.Sprintf("✅ Synced %d member(s), %d new clear(s), %d API request(s).",
			res.MembersSynced, res.ClearsAdded, res.APIRequests)
		if len(res.Failed) > 0 {
			msg += fmt.Sprintf(" %d member(s) failed.", len(res.Failed))
		}
		ReplyEphemeral(s, ic, msg)
	}
}

func (r *Router) isAdmin(ctx context.Context, discordID string) bool {
	m, err := r.members.Get(ctx, discordID)
	return err == nil && m.IsAdmin
}

func guessOutcomeText(out service.GuessOutcome) string {
	switch out.Kind {
	case service.GuessSuccess:
		return fmt.Sprintf("🎰 You have guessed **%d**! Your guesses: %s.", out.Number, joinInts(out.Guesses))
	case service.GuessNotEligible:
		return "Only FC members can participate in the lottery"
	case service.GuessOutOfRange:
		return "You can only pick a number between 1 and 99."
	case service.GuessAlreadyGuessed:
		return fmt.Sprintf("%d has already been guessed, pick another number.", out.Number)
	case service.GuessNotCurrentlyGuessed:
		return fmt.Sprintf("You are not currently guessing %d.", out.Number)
	case service.GuessQuotaExhausted:
		return fmt.Sprintf("You have used all of your guesses: %s.", joinInts(out.Guesses))
	case service.GuessTimedOut:
		return "The draw took too long, please try again."
	default:
		return "⚠️ Something went wrong handling that command."
	}
}

func viewText(v service.ViewResult) string {
	if !v.Eligible {
		return "Only FC members can participate in the lottery"
	}
	used := len(v.Guesses)
	if v.Quota == 1 {
		if used == 0 {
			return "You have not used your guess."
		}
		return fmt.Sprintf("You have used your guess: %s.", joinInts(v.Guesses))
	}
	if used == 0 {
		return fmt.Sprintf("You have used none of your %d guesses.", v.Quota)
	}
	return fmt.Sprintf("You have used %d of your %d guesses: %s.", used, v.Quota, joinInts(v.Guesses))
}

func remindSummary(out service.RemindOutcome) string {
	if len(out.Groups) == 0 {
		return "Everyone has used their guesses. Nothing to remind."
	}
	var b strings.Builder
	b.WriteString("Reminder sent. Open guesses:\n")
	for _, grp := range out.Groups {
		fmt.Fprintf(&b, "%d remaining: %s\n", grp.Remaining, prettyJoinMentions(grp.Members))
	}
	return b.String()
}
