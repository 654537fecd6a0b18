package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"llm-builder-console/internal/bootstrap"
	"llm-builder-console/internal/config"
	"llm-builder-console/internal/dto"
	"llm-builder-console/internal/entity"
	"llm-builder-console/internal/service"
	"llm-builder-console/internal/tracer"
	"llm-builder-console/pkg/apiclient"
	"llm-builder-console/pkg/ragconfig"

	"github.com/fatih/color"
)

var (
	promptColor = color.New(color.FgGreen, color.Bold).SprintFunc()
	infoColor   = color.New(color.FgCyan).SprintFunc()
	errColor    = color.New(color.FgRed).SprintFunc()
	warnColor   = color.New(color.FgYellow).SprintFunc()
	userColor   = color.New(color.FgGreen, color.Bold).SprintFunc()
	botColor    = color.New(color.FgCyan, color.Bold).SprintFunc()
)

func main() {
	// 1. Tracing (disabled unless OTEL_ENABLED=true)
	shutdownTracer := tracer.InitTracer()
	defer shutdownTracer(context.Background())

	// 2. Load Configuration
	cfg := config.Load()

	// 3. Bootstrap Dependencies (Container)
	container, err := bootstrap.NewContainer(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "startup failed: %v\n", err)
		os.Exit(1)
	}
	defer container.Logger.Sync()

	// 4. Handle interrupts
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigs
		fmt.Println("\nShutting down...")
		cancel()
	}()

	// 5. Run the REPL
	newConsole(container, cfg).run(ctx)
}

type console struct {
	c   *bootstrap.Container
	cfg *config.Config

	scanner    *bufio.Scanner
	selectedKB *entity.KnowledgeBase
}

func newConsole(c *bootstrap.Container, cfg *config.Config) *console {
	return &console{c: c, cfg: cfg, scanner: bufio.NewScanner(os.Stdin)}
}

func (a *console) run(ctx context.Context) {
	fmt.Println(promptColor("LLM Builder Console"))
	fmt.Printf("API: %s\n", infoColor(a.cfg.API.BaseURL))
	if a.c.AuthService.LoggedIn() {
		fmt.Println("Restored saved session. Type 'whoami' to verify, 'help' for commands.")
	} else {
		fmt.Println("Type 'login <email>' to begin, 'help' for commands.")
	}

	for ctx.Err() == nil {
		fmt.Print(promptColor("> "))
		if !a.scanner.Scan() {
			break
		}
		line := strings.TrimSpace(a.scanner.Text())
		if line == "" {
			continue
		}
		fields := strings.Fields(line)
		cmd, args := fields[0], fields[1:]

		switch cmd {
		case "exit", "quit":
			a.c.IngestTracker.Stop()
			return
		case "help":
			printHelp()
		case "login":
			a.login(ctx, args)
		case "register":
			a.register(ctx, args)
		case "logout":
			if err := a.c.AuthService.Logout(); err != nil {
				a.fail(err)
			}
		case "whoami":
			a.whoami(ctx)
		case "kb":
			a.kb(ctx, args)
		case "docs":
			a.docs(ctx)
		case "upload":
			a.upload(ctx, args)
		case "reingest":
			a.reingest(ctx, args)
		case "rmdoc":
			a.rmdoc(ctx, args)
		case "presets":
			a.presets(ctx, args)
		case "models":
			a.models(ctx, args)
		case "deployments":
			a.deployments(ctx, args)
		case "chat":
			a.chat(ctx, args)
		case "say":
			a.say(ctx, strings.Join(args, " "))
		default:
			fmt.Printf("%s unknown command %q (try 'help')\n", warnColor("!"), cmd)
		}
	}
}

func printHelp() {
	fmt.Print(`Commands:
  login <email>                 authenticate (prompts for password)
  register <email> [full name]  create an account and log in
  logout | whoami

  kb                            list knowledge bases
  kb create <name>              create a knowledge base
  kb select <#|id>              select a knowledge base
  kb delete <#|id>              delete a knowledge base
  docs                          list documents (polls while ingesting)
  upload <file>... [preset=<id>] [strategy=<s>] [size=<n>] [overlap=<n>] [model=<m>]
  reingest <docID>              re-run ingestion for a failed/completed document
  rmdoc <docID>                 remove a document

  presets [create <name> ...| delete <id>]
  models                        list registered models
  models test <#|id> <prompt>   run a one-off prompt through a model
  deployments                   list chat targets
  deployments create <name> <modelID> [kbID]
  deployments delete <#|id>

  chat                          list sessions
  chat new <deploymentID>       start a session
  chat select <#|id>            open a session (fetches history)
  chat rename <title>           rename the open session
  chat delete <#|id>            delete a session
  say <message>                 send a message in the open session

  exit
`)
}

func (a *console) fail(err error) {
	if apiclient.IsAuthExpired(err) {
		fmt.Printf("%s session expired, please log in again\n", errColor("✗"))
		_ = a.c.AuthService.Logout()
		return
	}
	fmt.Printf("%s %v\n", errColor("✗"), err)
}

func (a *console) prompt(label string) string {
	fmt.Printf("%s: ", label)
	if !a.scanner.Scan() {
		return ""
	}
	return strings.TrimSpace(a.scanner.Text())
}

// --- auth ---

func (a *console) login(ctx context.Context, args []string) {
	if len(args) < 1 {
		fmt.Println("usage: login <email>")
		return
	}
	password := a.prompt("password")
	user, err := a.c.AuthService.Login(ctx, args[0], password)
	if err != nil {
		a.fail(err)
		return
	}
	fmt.Printf("Logged in as %s (%s)\n", infoColor(user.Email), user.Role)
}

func (a *console) register(ctx context.Context, args []string) {
	if len(args) < 1 {
		fmt.Println("usage: register <email> [full name]")
		return
	}
	password := a.prompt("password")
	var fullName *string
	if len(args) > 1 {
		name := strings.Join(args[1:], " ")
		fullName = &name
	}
	user, err := a.c.AuthService.Register(ctx, args[0], password, fullName)
	if err != nil {
		a.fail(err)
		return
	}
	fmt.Printf("Registered and logged in as %s\n", infoColor(user.Email))
}

func (a *console) whoami(ctx context.Context) {
	user, err := a.c.AuthService.Me(ctx)
	if err != nil {
		a.fail(err)
		return
	}
	fmt.Printf("%s role=%s active=%v\n", infoColor(user.Email), user.Role, user.IsActive)
}

// --- knowledge bases ---

func (a *console) kb(ctx context.Context, args []string) {
	if len(args) == 0 {
		bases, err := a.c.KnowledgeService.ListBases(ctx)
		if err != nil {
			a.fail(err)
			return
		}
		if len(bases) == 0 {
			fmt.Println("No knowledge bases yet.")
			return
		}
		for i, kb := range bases {
			marker := " "
			if a.selectedKB != nil && a.selectedKB.Id == kb.Id {
				marker = promptColor("*")
			}
			fmt.Printf("%s %2d. %s  %s\n", marker, i+1, infoColor(kb.Name), kb.Id)
		}
		return
	}

	switch args[0] {
	case "create":
		if len(args) < 2 {
			fmt.Println("usage: kb create <name>")
			return
		}
		kb, err := a.c.KnowledgeService.CreateBase(ctx, strings.Join(args[1:], " "), nil, nil, "")
		if err != nil {
			a.fail(err)
			return
		}
		a.selectKB(ctx, kb)
	case "select":
		if len(args) < 2 {
			fmt.Println("usage: kb select <#|id>")
			return
		}
		kb, err := a.resolveKB(ctx, args[1])
		if err != nil {
			a.fail(err)
			return
		}
		a.selectKB(ctx, kb)
	case "delete":
		if len(args) < 2 {
			fmt.Println("usage: kb delete <#|id>")
			return
		}
		kb, err := a.resolveKB(ctx, args[1])
		if err != nil {
			a.fail(err)
			return
		}
		if err := a.c.KnowledgeService.DeleteBase(ctx, kb.Id); err != nil {
			a.fail(err)
			return
		}
		if a.selectedKB != nil && a.selectedKB.Id == kb.Id {
			a.selectedKB = nil
			a.c.IngestTracker.Stop()
		}
		fmt.Printf("Deleted %s\n", kb.Name)
	default:
		fmt.Println("usage: kb [create|select|delete]")
	}
}

func (a *console) resolveKB(ctx context.Context, ref string) (*entity.KnowledgeBase, error) {
	bases, err := a.c.KnowledgeService.ListBases(ctx)
	if err != nil {
		return nil, err
	}
	if n, err := strconv.Atoi(ref); err == nil && n >= 1 && n <= len(bases) {
		return &bases[n-1], nil
	}
	for i := range bases {
		if bases[i].Id == ref {
			return &bases[i], nil
		}
	}
	return nil, fmt.Errorf("no knowledge base %q", ref)
}

func (a *console) selectKB(ctx context.Context, kb *entity.KnowledgeBase) {
	a.selectedKB = kb
	docs, err := a.c.IngestTracker.Select(ctx, kb.Id)
	if err != nil {
		a.fail(err)
		fmt.Printf("Selected %s (document list unavailable)\n", infoColor(kb.Name))
		return
	}
	fmt.Printf("Selected %s (%d documents)\n", infoColor(kb.Name), len(docs))
}

// --- documents ---

func (a *console) docs(ctx context.Context) {
	if a.selectedKB == nil {
		fmt.Println("Select a knowledge base first: kb select <#>")
		return
	}
	docs, err := a.c.IngestTracker.Select(ctx, a.selectedKB.Id)
	if err != nil {
		a.fail(err)
		return
	}
	printDocuments(docs)
	if service.HasActive(docs) {
		fmt.Println(warnColor("Ingestion in progress; run 'docs' again to refresh."))
	}
}

func printDocuments(docs []entity.Document) {
	if len(docs) == 0 {
		fmt.Println("No documents. Use 'upload <file>' to add some.")
		return
	}
	for _, d := range docs {
		status := string(d.Status)
		switch d.Status {
		case entity.DocumentStatusCompleted:
			status = infoColor(status)
		case entity.DocumentStatusFailed:
			status = errColor(status)
		default:
			status = warnColor(status)
		}
		fmt.Printf("  %-36s %-12s %s\n", d.Id, status, d.Name)
		if d.ErrorMessage != nil && *d.ErrorMessage != "" {
			fmt.Printf("    %s %s\n", errColor("error:"), *d.ErrorMessage)
		}
	}
}

func (a *console) upload(ctx context.Context, args []string) {
	if a.selectedKB == nil {
		fmt.Println("Select a knowledge base first: kb select <#>")
		return
	}
	var paths []string
	override := ragconfig.Override{}
	presetID := ""
	hasOverride := false
	for _, arg := range args {
		key, value, found := strings.Cut(arg, "=")
		if !found {
			paths = append(paths, arg)
			continue
		}
		switch key {
		case "preset":
			presetID = value
		case "strategy":
			override.ChunkStrategy = &value
			hasOverride = true
		case "model":
			override.EmbeddingModel = &value
			hasOverride = true
		case "size":
			if n, err := strconv.Atoi(value); err == nil {
				override.ChunkSize = &n
				hasOverride = true
			}
		case "overlap":
			if n, err := strconv.Atoi(value); err == nil {
				override.ChunkOverlap = &n
				hasOverride = true
			}
		default:
			fmt.Printf("%s ignoring unknown option %q\n", warnColor("!"), key)
		}
	}
	if len(paths) == 0 {
		fmt.Println("usage: upload <file>... [preset=<id>] [strategy=<s>] [size=<n>] [overlap=<n>] [model=<m>]")
		return
	}

	// Resolve the effective chunking/embedding config for this batch.
	var cfg *ragconfig.Config
	if presetID != "" || hasOverride {
		lookup, err := a.c.PresetService.Lookup(ctx)
		if err != nil {
			a.fail(err)
			return
		}
		resolved := ragconfig.Resolve(&override, presetID, lookup)
		cfg = &resolved
		fmt.Printf("Using config: %s size=%d overlap=%d model=%s\n",
			resolved.ChunkStrategy, resolved.ChunkSize, resolved.ChunkOverlap, resolved.EmbeddingModel)
	}

	results := a.c.UploadCoordinator.Upload(ctx, a.selectedKB.Id, paths, cfg, presetID)
	for _, r := range results {
		if r.Err != nil {
			fmt.Printf("%s %s: %v\n", errColor("✗"), r.Path, r.Err)
			continue
		}
		a.c.IngestTracker.Prepend(*r.Document)
		fmt.Printf("%s %s → %s (%s)\n", promptColor("✓"), r.Path, r.Document.Id, r.Document.Status)
	}
}

func (a *console) reingest(ctx context.Context, args []string) {
	if a.selectedKB == nil || len(args) < 1 {
		fmt.Println("usage: reingest <docID> (with a knowledge base selected)")
		return
	}
	doc, err := a.c.KnowledgeService.Reingest(ctx, a.selectedKB.Id, args[0])
	if err != nil {
		a.fail(err)
		return
	}
	a.c.IngestTracker.Replace(*doc)
	fmt.Printf("Re-ingest queued: %s (%s)\n", doc.Name, doc.Status)
}

func (a *console) rmdoc(ctx context.Context, args []string) {
	if a.selectedKB == nil || len(args) < 1 {
		fmt.Println("usage: rmdoc <docID> (with a knowledge base selected)")
		return
	}
	if err := a.c.KnowledgeService.DeleteDocument(ctx, a.selectedKB.Id, args[0]); err != nil {
		a.fail(err)
		return
	}
	a.c.IngestTracker.Remove(args[0])
	fmt.Println("Document removed.")
}

// --- presets ---

func (a *console) presets(ctx context.Context, args []string) {
	if len(args) == 0 {
		presets, err := a.c.PresetService.List(ctx)
		if err != nil {
			a.fail(err)
			return
		}
		if len(presets) == 0 {
			fmt.Println("No presets.")
			return
		}
		for _, p := range presets {
			o := ragconfig.FromMap(p.Config)
			resolved := ragconfig.Resolve(&o, "", nil)
			fmt.Printf("  %-36s %-20s %s size=%d overlap=%d model=%s\n",
				p.Id, infoColor(p.Name), resolved.ChunkStrategy, resolved.ChunkSize, resolved.ChunkOverlap, resolved.EmbeddingModel)
		}
		return
	}

	switch args[0] {
	case "create":
		if len(args) < 2 {
			fmt.Println("usage: presets create <name> [strategy=<s>] [size=<n>] [overlap=<n>] [model=<m>]")
			return
		}
		name := args[1]
		override := ragconfig.Override{}
		for _, arg := range args[2:] {
			key, value, found := strings.Cut(arg, "=")
			if !found {
				continue
			}
			switch key {
			case "strategy":
				override.ChunkStrategy = &value
			case "model":
				override.EmbeddingModel = &value
			case "size":
				if n, err := strconv.Atoi(value); err == nil {
					override.ChunkSize = &n
				}
			case "overlap":
				if n, err := strconv.Atoi(value); err == nil {
					override.ChunkOverlap = &n
				}
			}
		}
		resolved := ragconfig.Resolve(&override, "", nil)
		preset, err := a.c.PresetService.Create(ctx, dto.PresetCreateRequest{Name: name, Config: resolved.ToMap()})
		if err != nil {
			a.fail(err)
			return
		}
		fmt.Printf("Created preset %s (%s)\n", infoColor(preset.Name), preset.Id)
	case "delete":
		if len(args) < 2 {
			fmt.Println("usage: presets delete <id>")
			return
		}
		if err := a.c.PresetService.Delete(ctx, args[1]); err != nil {
			a.fail(err)
			return
		}
		fmt.Println("Preset deleted.")
	default:
		fmt.Println("usage: presets [create|delete]")
	}
}

// --- deployments & chat ---

func (a *console) models(ctx context.Context, args []string) {
	if len(args) == 0 {
		models, err := a.c.ModelService.List(ctx)
		if err != nil {
			a.fail(err)
			return
		}
		if len(models) == 0 {
			fmt.Println("No models registered.")
			return
		}
		for i, m := range models {
			fmt.Printf("  %2d. %-36s %-20s provider=%s model=%s\n", i+1, m.Id, infoColor(m.Name), m.Provider, m.ModelId)
		}
		return
	}

	if args[0] != "test" || len(args) < 3 {
		fmt.Println("usage: models [test <#|id> <prompt>]")
		return
	}
	model, err := a.resolveModel(ctx, args[1])
	if err != nil {
		a.fail(err)
		return
	}
	result, err := a.c.ModelService.Test(ctx, model.Id, strings.Join(args[2:], " "))
	if err != nil {
		a.fail(err)
		return
	}
	// A failed run arrives as an "Error: ..." result, like a failed chat turn.
	fmt.Printf("%s: %s\n", botColor(model.Name), result)
}

func (a *console) resolveModel(ctx context.Context, ref string) (*entity.Model, error) {
	models, err := a.c.ModelService.List(ctx)
	if err != nil {
		return nil, err
	}
	if n, err := strconv.Atoi(ref); err == nil && n >= 1 && n <= len(models) {
		return &models[n-1], nil
	}
	for i := range models {
		if models[i].Id == ref {
			return &models[i], nil
		}
	}
	return nil, fmt.Errorf("no model %q", ref)
}

func (a *console) deployments(ctx context.Context, args []string) {
	if len(args) == 0 {
		deployments, err := a.c.DeploymentService.List(ctx)
		if err != nil {
			a.fail(err)
			return
		}
		if len(deployments) == 0 {
			fmt.Println("No deployments. Use 'deployments create <name> <modelID>'.")
			return
		}
		for i, d := range deployments {
			kb := "-"
			if d.KnowledgeBaseId != nil {
				kb = *d.KnowledgeBaseId
			}
			fmt.Printf("  %2d. %-36s %-20s model=%s kb=%s\n", i+1, d.Id, infoColor(d.Name), d.ModelId, kb)
		}
		return
	}

	switch args[0] {
	case "create":
		if len(args) < 3 {
			fmt.Println("usage: deployments create <name> <modelID> [kbID]")
			return
		}
		req := dto.DeploymentCreateRequest{Name: args[1], ModelId: args[2]}
		if len(args) > 3 {
			req.KnowledgeBaseId = &args[3]
		}
		deployment, err := a.c.DeploymentService.Create(ctx, req)
		if err != nil {
			a.fail(err)
			return
		}
		fmt.Printf("Created deployment %s (%s) — use 'chat new %s'\n", infoColor(deployment.Name), deployment.Id, deployment.Id)
	case "delete":
		if len(args) < 2 {
			fmt.Println("usage: deployments delete <#|id>")
			return
		}
		deployment, err := a.resolveDeployment(ctx, args[1])
		if err != nil {
			a.fail(err)
			return
		}
		if err := a.c.DeploymentService.Delete(ctx, deployment.Id); err != nil {
			a.fail(err)
			return
		}
		fmt.Printf("Deleted %s\n", deployment.Name)
	default:
		fmt.Println("usage: deployments [create|delete]")
	}
}

func (a *console) resolveDeployment(ctx context.Context, ref string) (*entity.Deployment, error) {
	deployments, err := a.c.DeploymentService.List(ctx)
	if err != nil {
		return nil, err
	}
	if n, err := strconv.Atoi(ref); err == nil && n >= 1 && n <= len(deployments) {
		return &deployments[n-1], nil
	}
	for i := range deployments {
		if deployments[i].Id == ref {
			return &deployments[i], nil
		}
	}
	return nil, fmt.Errorf("no deployment %q", ref)
}

func (a *console) chat(ctx context.Context, args []string) {
	if len(args) == 0 {
		sessions, err := a.c.ChatStore.LoadSessions(ctx)
		if err != nil {
			a.fail(err)
			return
		}
		if len(sessions) == 0 {
			fmt.Println("No chats. Use 'chat new <deploymentID>'.")
			return
		}
		active := a.c.ChatStore.ActiveSessionID()
		for i, s := range sessions {
			marker := " "
			if s.Id == active {
				marker = promptColor("*")
			}
			fmt.Printf("%s %2d. %-30s %s\n", marker, i+1, infoColor(s.Title), s.Id)
		}
		return
	}

	switch args[0] {
	case "new":
		if len(args) < 2 {
			fmt.Println("usage: chat new <deploymentID>")
			return
		}
		session, err := a.c.ChatStore.CreateSession(ctx, args[1], "")
		if err != nil {
			a.fail(err)
			return
		}
		fmt.Printf("Started %s — use 'say <message>'\n", infoColor(session.Title))
	case "select":
		if len(args) < 2 {
			fmt.Println("usage: chat select <#|id>")
			return
		}
		session, err := a.resolveSession(ctx, args[1])
		if err != nil {
			a.fail(err)
			return
		}
		messages, err := a.c.ChatStore.Select(ctx, session.Id)
		if err != nil {
			a.fail(err)
			return
		}
		fmt.Printf("Opened %s (%d messages)\n", infoColor(session.Title), len(messages))
		for _, m := range messages {
			printMessage(m)
		}
	case "rename":
		active := a.c.ChatStore.ActiveSessionID()
		if active == "" || len(args) < 2 {
			fmt.Println("usage: chat rename <title> (with a chat open)")
			return
		}
		if _, err := a.c.ChatStore.RenameSession(ctx, active, strings.Join(args[1:], " ")); err != nil {
			a.fail(err)
		}
	case "delete":
		if len(args) < 2 {
			fmt.Println("usage: chat delete <#|id>")
			return
		}
		session, err := a.resolveSession(ctx, args[1])
		if err != nil {
			a.fail(err)
			return
		}
		if err := a.c.ChatStore.DeleteSession(ctx, session.Id); err != nil {
			a.fail(err)
			return
		}
		fmt.Println("Chat deleted.")
	default:
		fmt.Println("usage: chat [new|select|rename|delete]")
	}
}

func (a *console) resolveSession(ctx context.Context, ref string) (*entity.ChatSession, error) {
	sessions := a.c.ChatStore.Sessions()
	if len(sessions) == 0 {
		var err error
		sessions, err = a.c.ChatStore.LoadSessions(ctx)
		if err != nil {
			return nil, err
		}
	}
	if n, err := strconv.Atoi(ref); err == nil && n >= 1 && n <= len(sessions) {
		return &sessions[n-1], nil
	}
	for i := range sessions {
		if sessions[i].Id == ref {
			return &sessions[i], nil
		}
	}
	return nil, fmt.Errorf("no chat session %q", ref)
}

func (a *console) say(ctx context.Context, content string) {
	sessionID := a.c.ChatStore.ActiveSessionID()
	if sessionID == "" {
		fmt.Println("Open a chat first: chat select <#>")
		return
	}
	round, err := a.c.ChatStore.Send(ctx, sessionID, content)
	if err != nil {
		a.fail(err)
		return
	}
	// The round lands atomically: the user echo and the grounded answer.
	for _, m := range round[1:] {
		printMessage(m)
	}
}

// truncateSnippet shortens citation text by runes so a multibyte character
// is never cut mid-sequence.
func truncateSnippet(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max]) + "…"
}

func printMessage(m entity.ChatMessage) {
	label := botColor("assistant")
	if m.Role == entity.RoleUser {
		label = userColor("you")
	}
	fmt.Printf("%s: %s\n", label, m.Content)
	if len(m.Citations) > 0 {
		fmt.Printf("  %s\n", infoColor(fmt.Sprintf("grounded in %d chunk(s):", len(m.Citations))))
		for _, c := range m.Citations {
			fmt.Printf("   - [%s] score=%.2f %s\n", c.Source, c.Score, truncateSnippet(c.Text, 120))
		}
	}
}
