package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sheikhmdsamiul/swiftme/internal/api"
	"github.com/sheikhmdsamiul/swiftme/internal/config"
	"github.com/sheikhmdsamiul/swiftme/internal/document"
	"github.com/sheikhmdsamiul/swiftme/internal/pipeline"
	"github.com/sheikhmdsamiul/swiftme/internal/profile"
	"github.com/sheikhmdsamiul/swiftme/internal/proposal"
)

// --- profile ---

var profileCmd = &cobra.Command{
	Use:   "profile",
	Short: "Manage the freelancer profile",
}

var profileSetupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Store a profile in the experience knowledge base",
	Long: `Store a profile in the experience knowledge base.

Examples:
  swiftme profile setup --file profile.json
  swiftme profile setup --interactive --experience-file resume.pdf`,
	RunE: func(cmd *cobra.Command, args []string) error {
		file, _ := cmd.Flags().GetString("file")
		interactive, _ := cmd.Flags().GetBool("interactive")
		experienceFile, _ := cmd.Flags().GetString("experience-file")

		if (file == "") == !interactive {
			return errors.New("exactly one of --file or --interactive is required")
		}

		var experience string
		if experienceFile != "" {
			text, err := document.ExtractFile(experienceFile)
			if err != nil {
				return fmt.Errorf("reading experience file: %w", err)
			}
			experience = text
		}

		var (
			p   profile.Profile
			err error
		)
		if file != "" {
			p, err = readProfileFile(file)
		} else {
			p, err = promptProfile(experience == "")
		}
		if err != nil {
			return err
		}
		if experience != "" {
			p.Experience = experience
		}
		if err := p.Validate(); err != nil {
			return fmt.Errorf("invalid profile: %w", err)
		}

		client, err := newAPIClient()
		if err != nil {
			return err
		}
		printStep("Indexing profile %s...", p.Name)
		resp, err := client.post(cmd.Context(), "/api/profile/setup", api.ProfileSetupRequest{Profile: p})
		if err != nil {
			return err
		}
		var result api.ProfileSetupResponse
		if err := decodeJSON(resp, &result); err != nil {
			return err
		}
		printSuccess("%s", result.Message)
		return nil
	},
}

func init() {
	profileSetupCmd.Flags().String("file", "", "profile JSON file")
	profileSetupCmd.Flags().Bool("interactive", false, "enter the profile interactively")
	profileSetupCmd.Flags().String("experience-file", "", "résumé (PDF, DOCX, HTML or text) used as the experience text")
	profileCmd.AddCommand(profileSetupCmd)
}

// readProfileFile accepts either a bare profile or {"profile": {...}}.
func readProfileFile(path string) (profile.Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return profile.Profile{}, fmt.Errorf("reading profile: %w", err)
	}
	var wrapped api.ProfileSetupRequest
	if err := json.Unmarshal(data, &wrapped); err == nil && wrapped.Profile.Name != "" {
		return wrapped.Profile, nil
	}
	var p profile.Profile
	if err := json.Unmarshal(data, &p); err != nil {
		return profile.Profile{}, fmt.Errorf("parsing profile %s: %w", path, err)
	}
	return p, nil
}

// --- generate ---

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate a proposal for a job posting",
	Long: `Generate a proposal for a job posting.

Examples:
  swiftme generate --posting "Need a Go developer for a billing API"
  swiftme generate --file posting.pdf --tone formal
  swiftme generate --url https://example.com/jobs/42 --instructions "Mention my open-source work"
  cat posting.txt | swiftme generate --file -`,
	RunE: func(cmd *cobra.Command, args []string) error {
		posting, _ := cmd.Flags().GetString("posting")
		file, _ := cmd.Flags().GetString("file")
		url, _ := cmd.Flags().GetString("url")
		toneFlag, _ := cmd.Flags().GetString("tone")
		chooseTone, _ := cmd.Flags().GetBool("choose-tone")
		instructions, _ := cmd.Flags().GetString("instructions")
		asJSON, _ := cmd.Flags().GetBool("json")

		req, err := buildProposalRequest(posting, file, url, cmd.InOrStdin())
		if err != nil {
			return err
		}

		if chooseTone {
			tone, err := selectTone()
			if err != nil {
				return err
			}
			toneFlag = string(tone)
		}
		tone, err := proposal.ParseTone(toneFlag)
		if err != nil {
			return err
		}
		req.Tone = string(tone)
		req.CustomInstructions = instructions

		client, err := newAPIClient()
		if err != nil {
			return err
		}
		printStep("Generating %s proposal...", tone)
		resp, err := client.post(cmd.Context(), "/api/proposal/generate", req)
		if err != nil {
			return err
		}
		var result api.ProposalResponse
		if err := decodeJSON(resp, &result); err != nil {
			return err
		}

		if asJSON {
			return printJSON(cmd.OutOrStdout(), result)
		}
		printProposal(cmd.OutOrStdout(), result)
		return nil
	},
}

func init() {
	generateCmd.Flags().String("posting", "", "job posting text")
	generateCmd.Flags().String("file", "", "job posting file (PDF, DOCX, HTML or text; - for stdin)")
	generateCmd.Flags().String("url", "", "job posting URL, fetched by the server")
	generateCmd.Flags().String("tone", string(proposal.DefaultTone), "tone: formal, casual or professional")
	generateCmd.Flags().Bool("choose-tone", false, "pick the tone from a menu")
	generateCmd.Flags().String("instructions", "", "custom instructions for the writer")
	generateCmd.Flags().Bool("json", false, "print the raw JSON response")
}

func buildProposalRequest(posting, file, url string, stdin io.Reader) (api.ProposalRequest, error) {
	set := 0
	for _, v := range []string{posting, file, url} {
		if v != "" {
			set++
		}
	}
	if set != 1 {
		return api.ProposalRequest{}, errors.New("exactly one of --posting, --file or --url is required")
	}

	switch {
	case url != "":
		return api.ProposalRequest{JobPostingURL: url}, nil
	case file == "-":
		data, err := io.ReadAll(io.LimitReader(stdin, document.MaxSize))
		if err != nil {
			return api.ProposalRequest{}, fmt.Errorf("reading stdin: %w", err)
		}
		posting = string(data)
	case file != "":
		text, err := document.ExtractFile(file)
		if err != nil {
			return api.ProposalRequest{}, fmt.Errorf("reading posting: %w", err)
		}
		posting = text
	}
	if strings.TrimSpace(posting) == "" {
		return api.ProposalRequest{}, errors.New("job posting is empty")
	}
	return api.ProposalRequest{JobPosting: posting}, nil
}

func printProposal(w io.Writer, p api.ProposalResponse) {
	fmt.Fprintln(w, p.Proposal)
	fmt.Fprintln(w)
	score := fmt.Sprintf("%.2f", p.ConfidenceScore)
	printStatus("Confidence", "%s", colorize(confidenceColor(p.ConfidenceScore), score))
	if len(p.MatchedSkills) > 0 {
		printStatus("Matched skills", "%s", strings.Join(p.MatchedSkills, ", "))
	} else {
		printStatus("Matched skills", "none")
	}
	if p.RequirementsDegraded {
		printWarning("Requirements could not be extracted; the proposal used generic requirements")
	}
}

// --- history ---

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recently generated proposals",
	RunE: func(cmd *cobra.Command, args []string) error {
		full, _ := cmd.Flags().GetBool("full")
		id, _ := cmd.Flags().GetString("id")

		client, err := newAPIClient()
		if err != nil {
			return err
		}
		if id != "" {
			resp, err := client.get(cmd.Context(), "/api/proposal/"+url.PathEscape(id))
			if err != nil {
				return err
			}
			var p api.ProposalResponse
			if err := decodeJSON(resp, &p); err != nil {
				return err
			}
			printProposal(cmd.OutOrStdout(), p)
			return nil
		}

		resp, err := client.get(cmd.Context(), "/api/proposal/history")
		if err != nil {
			return err
		}
		var result api.HistoryResponse
		if err := decodeJSON(resp, &result); err != nil {
			return err
		}

		if len(result.Proposals) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No proposals yet.")
			return nil
		}
		out := cmd.OutOrStdout()
		for i, p := range result.Proposals {
			fmt.Fprintf(out, "%s  %s  %-12s  confidence %.2f\n",
				colorize(colorBold, fmt.Sprintf("#%d", i+1)),
				p.Timestamp.Local().Format("2006-01-02 15:04"),
				p.Tone,
				p.ConfidenceScore,
			)
			content := p.Content
			if !full {
				content = preview(content, 160)
			}
			fmt.Fprintf(out, "    %s\n\n", content)
		}
		return nil
	},
}

func init() {
	historyCmd.Flags().Bool("full", false, "print full proposal text")
	historyCmd.Flags().String("id", "", "show one proposal, including archived ones")
}

func preview(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}

// --- search ---

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search stored experience",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		k, _ := cmd.Flags().GetInt("k")

		client, err := newAPIClient()
		if err != nil {
			return err
		}
		resp, err := client.post(cmd.Context(), "/api/experience/search", api.SearchRequest{
			Query: strings.Join(args, " "),
			K:     k,
		})
		if err != nil {
			return err
		}
		var result api.SearchResponse
		if err := decodeJSON(resp, &result); err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if len(result.Results) == 0 {
			fmt.Fprintln(out, "No matching experience. Run `swiftme profile setup` first.")
			return nil
		}
		for i, h := range result.Results {
			fmt.Fprintf(out, "%s (relevance %.2f, %s)\n%s\n\n",
				colorize(colorBold, fmt.Sprintf("#%d", i+1)), h.Relevance, h.SourceName, h.Content)
		}
		return nil
	},
}

func init() {
	searchCmd.Flags().Int("k", 0, "number of results (default: retrieval.top_k)")
}

// --- status ---

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show server and engine status",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.get(cmd.Context(), "/status")
		if err != nil {
			printStatus("Server", "stopped")
			return nil
		}
		var st pipeline.Status
		if err := decodeJSON(resp, &st); err != nil {
			return err
		}

		printStatus("Server", "running at %s", client.baseURL)
		engineState := colorize(colorGreen, "reachable")
		if !st.EngineReachable {
			engineState = colorize(colorRed, "unreachable")
		}
		printStatus("Engine", "%s (%s)", st.Engine, engineState)
		printStatus("Indexed chunks", "%d", st.IndexedChunks)
		printStatus("History", "%d/%d", st.HistorySize, st.HistoryCapacity)
		if st.ArchivedProposals > 0 {
			printStatus("Archived proposals", "%d", st.ArchivedProposals)
		}
		return nil
	},
}

// --- config ---

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or update configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "  %s\n", colorize(colorCyan, "# "+config.FilePath()))
		for _, k := range config.ShowAll(cfg) {
			fmt.Fprintf(cmd.OutOrStdout(), "  %s = %s\n", colorize(colorBold, k.Key), k.Value)
		}
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value",
	Long: "Set a configuration value in the config file.\n\nValid keys:\n  " +
		strings.Join(config.ValidKeys(), "\n  "),
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, value := args[0], args[1]

		if err := config.SetKey(key, value); err != nil {
			return err
		}

		printSuccess("Set %s = %s", key, value)
		return nil
	},
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
