package api

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"strings"
	"time"

	"github.com/google/uuid"

	"beacon/internal/config"
	"beacon/internal/logging"
	"beacon/internal/match"
	"beacon/internal/profile"
)

// ValidationError marks a request the client must fix; the HTTP layer maps
// it to 400.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func validationErrorf(format string, args ...any) error {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

// Service orchestrates fingerprint submissions against the store and matchers.
type Service struct {
	store   *profile.Store
	matcher *match.Matcher
	pairing *pairingTable
	logger  *slog.Logger

	candidateLimit int
	now            func() time.Time
}

// NewService wires the submission pipeline. Matching thresholds come from the
// config; everything else from policy defaults.
func NewService(cfg *config.Config, store *profile.Store, logger *slog.Logger) *Service {
	if logger == nil {
		logger = logging.NewNop()
	}
	policy := match.DefaultPolicy()
	limit := 0
	if cfg != nil {
		policy.SameDeviceThreshold = cfg.Matching.SameDeviceThreshold
		policy.CrossDeviceThreshold = cfg.Matching.CrossDeviceThreshold
		limit = cfg.Matching.CandidateLimit
	}
	return &Service{
		store:          store,
		matcher:        match.NewMatcher(policy),
		pairing:        newPairingTable(),
		logger:         logging.WithComponent(logger, "api"),
		candidateLimit: limit,
		now:            time.Now,
	}
}

// Submit resolves the identity of one visit and persists it.
//
// The pipeline: validate, derive the ip subnet from the remote address when
// the client did not send one, retrieve candidates, try the same-device
// matcher, on a miss try the cross-device matcher over household members,
// then insert the profile row and refresh its household aggregate.
func (s *Service) Submit(ctx context.Context, req FingerprintRequest, remoteAddr string) (FingerprintResponse, error) {
	if strings.TrimSpace(req.FingerprintID) == "" {
		return FingerprintResponse{}, validationErrorf("fingerprintId is required")
	}

	incoming := s.buildProfile(req, remoteAddr)
	signals := incoming.Signals()
	now := s.now()

	candidates, err := s.store.Candidates(ctx, profile.CandidateQuery{
		DeviceID:      incoming.DeviceID,
		IPSubnet:      incoming.IPSubnet,
		FingerprintID: incoming.FingerprintID,
		Limit:         s.candidateLimit,
	})
	if err != nil {
		return FingerprintResponse{}, fmt.Errorf("candidate retrieval: %w", err)
	}

	resp := FingerprintResponse{}
	if best := s.matcher.FindBestMatch(signals, signalViews(candidates)); best != nil {
		resp.MatchType = ref(MatchTypeSameDevice)
		resp.MatchedVisitorID = ref(best.Candidate.VisitorID)
		resp.Confidence = best.Outcome.Score
		resp.MatchedSignals = best.Outcome.MatchedSignals
		// A same-device hit means this is the same browser: adopt its
		// identity instead of minting a parallel one.
		incoming.VisitorID = best.Candidate.VisitorID
		signals.VisitorID = best.Candidate.VisitorID
	}

	if incoming.VisitorID == "" {
		incoming.VisitorID = uuid.NewString()
		signals.VisitorID = incoming.VisitorID
	}

	if incoming.HouseholdID != nil {
		resp.HouseholdID = *incoming.HouseholdID
		if resp.MatchType == nil {
			members, err := s.store.HouseholdMembers(ctx, *incoming.HouseholdID, s.candidateLimit)
			if err != nil {
				return FingerprintResponse{}, fmt.Errorf("household members: %w", err)
			}
			if best := s.matcher.FindBestCrossDeviceMatch(signals, signalViews(members), now); best != nil {
				resp.MatchType = ref(MatchTypeCrossDevice)
				resp.MatchedVisitorID = ref(best.Candidate.VisitorID)
				resp.Confidence = best.Outcome.Score
				resp.MatchedSignals = best.Outcome.MatchedSignals
			}
		}
	}

	inserted, err := s.store.Insert(ctx, incoming)
	if err != nil {
		return FingerprintResponse{}, fmt.Errorf("persist profile: %w", err)
	}
	resp.VisitorID = inserted.VisitorID
	resp.ProfileID = inserted.ID

	if incoming.HouseholdID != nil {
		if _, err := s.store.UpsertHousehold(ctx, *incoming.HouseholdID); err != nil {
			return FingerprintResponse{}, fmt.Errorf("refresh household: %w", err)
		}
	}

	s.logger.Info("visit resolved",
		logging.String("visitor_id", resp.VisitorID),
		logging.String("match_type", matchLabel(resp.MatchType)),
		logging.Float64("confidence", resp.Confidence))
	return resp, nil
}

func matchLabel(matchType *string) string {
	if matchType == nil {
		return "none"
	}
	return *matchType
}

// PatchMouse applies post-hoc pointer-behavior evidence.
func (s *Service) PatchMouse(ctx context.Context, req MouseDynamicsRequest) (MouseDynamicsResponse, error) {
	if strings.TrimSpace(req.VisitorID) == "" {
		return MouseDynamicsResponse{}, validationErrorf("visitorId is required")
	}
	patched, err := s.store.PatchMouseDynamics(ctx, req.VisitorID, profile.MouseDynamics{
		PointerType:     req.PointerType,
		WheelDeltaY:     req.WheelDeltaY,
		WheelDeltaMode:  req.WheelDeltaMode,
		SmoothScroll:    req.SmoothScroll,
		MovementMinStep: req.MovementMinStep,
	})
	if err != nil {
		return MouseDynamicsResponse{}, fmt.Errorf("patch mouse dynamics: %w", err)
	}
	return MouseDynamicsResponse{Updated: patched}, nil
}

// StoreToken binds a visitor to an identity token, issuing a fresh token when
// the request does not carry one.
func (s *Service) StoreToken(ctx context.Context, req TokenRequest) (TokenStoreResponse, error) {
	if strings.TrimSpace(req.VisitorID) == "" {
		return TokenStoreResponse{}, validationErrorf("visitorId is required")
	}
	token := strings.TrimSpace(req.Token)
	if token == "" {
		token = uuid.NewString()
	}
	if err := s.store.PutToken(ctx, token, req.VisitorID); err != nil {
		return TokenStoreResponse{}, fmt.Errorf("store token: %w", err)
	}
	return TokenStoreResponse{Stored: true, Token: token}, nil
}

// LookupToken resolves a token to its visitor. An empty visitor id means the
// token is unknown; the HTTP layer maps that to 204.
func (s *Service) LookupToken(ctx context.Context, token string) (TokenResponse, error) {
	if strings.TrimSpace(token) == "" {
		return TokenResponse{}, validationErrorf("token is required")
	}
	visitorID, err := s.store.TokenVisitor(ctx, token)
	if err != nil {
		return TokenResponse{}, fmt.Errorf("token lookup: %w", err)
	}
	return TokenResponse{Token: token, VisitorID: visitorID}, nil
}

// probeHosts is the fixed hostname list clients resolve to build the
// LAN-topology bit-vector. Order defines bit positions.
var probeHosts = []string{
	"router.local",
	"gateway.local",
	"nas.local",
	"printer.local",
	"tv.local",
	"chromecast.local",
	"homeassistant.local",
	"pi.local",
}

// DNSProbeHosts returns the hostname list for topology probing.
func (s *Service) DNSProbeHosts() DNSProbeResponse {
	return DNSProbeResponse{Hosts: probeHosts}
}

// IssuePairingCode mints a short-lived code bound to a visitor for the
// co-location handshake.
func (s *Service) IssuePairingCode(req PairingCodeRequest) (PairingCodeResponse, error) {
	if strings.TrimSpace(req.VisitorID) == "" {
		return PairingCodeResponse{}, validationErrorf("visitorId is required")
	}
	code := s.pairing.issue(req.VisitorID, s.now())
	return PairingCodeResponse{Code: code, ExpiresIn: int(pairingTTL / time.Second)}, nil
}

// ConfirmPairing redeems a code heard by another device. Self-pairing and
// expired or unknown codes fail softly with Paired=false.
func (s *Service) ConfirmPairing(req PairingConfirmRequest) (PairingConfirmResponse, error) {
	if strings.TrimSpace(req.VisitorID) == "" || strings.TrimSpace(req.Code) == "" {
		return PairingConfirmResponse{}, validationErrorf("visitorId and code are required")
	}
	issuer, ok := s.pairing.redeem(req.Code, s.now())
	if !ok || issuer == req.VisitorID {
		return PairingConfirmResponse{Paired: false}, nil
	}
	s.logger.Info("devices paired",
		logging.String("visitor_id", req.VisitorID),
		logging.String("paired_visitor_id", issuer))
	return PairingConfirmResponse{Paired: true, PairedVisitorID: issuer}, nil
}

// buildProfile converts the wire request into a profile row, deriving the ip
// subnet and household identifier when enough evidence is present.
func (s *Service) buildProfile(req FingerprintRequest, remoteAddr string) *profile.Profile {
	p := &profile.Profile{
		VisitorID:           strings.TrimSpace(req.VisitorID),
		FingerprintID:       optional(req.FingerprintID),
		DeviceID:            optional(req.DeviceID),
		BrowserID:           optional(req.BrowserID),
		IPSubnet:            req.IPSubnet,
		AudioSum:            req.AudioSum,
		Timezone:            req.Timezone,
		TimezoneOffset:      req.TimezoneOffset,
		Languages:           match.NormalizeLanguages(req.Languages),
		ScreenWidth:         req.ScreenWidth,
		ScreenHeight:        req.ScreenHeight,
		HardwareConcurrency: req.HardwareConcurrency,
		DeviceMemory:        req.DeviceMemory,
		Platform:            req.Platform,
		TouchSupport:        req.TouchSupport,
		ColorDepth:          req.ColorDepth,
		PointerType:         req.PointerType,
		WheelDeltaY:         req.WheelDeltaY,
		WheelDeltaMode:      req.WheelDeltaMode,
		LocalSubnet:         req.LocalSubnet,
		BatteryLevel:        req.BatteryLevel,
		BatteryCharging:     req.BatteryCharging,
		LoginBitmask:        req.LoginBitmask,
		LANTopology:         req.LANTopology,
	}

	if p.IPSubnet == nil {
		if subnet := SubnetFromAddr(remoteAddr); subnet != "" {
			p.IPSubnet = &subnet
		}
	}

	if p.IPSubnet != nil && p.Timezone != nil {
		household := profile.HouseholdID(*p.IPSubnet, *p.Timezone, p.Languages)
		p.HouseholdID = &household
	}
	return p
}

// SubnetFromAddr derives the matching subnet from a remote address: the /24
// network for IPv4, the /48 prefix for IPv6. Returns empty when the address
// cannot be parsed.
func SubnetFromAddr(remoteAddr string) string {
	host := remoteAddr
	if h, _, err := net.SplitHostPort(remoteAddr); err == nil {
		host = h
	}
	ip := net.ParseIP(host)
	if ip == nil {
		return ""
	}
	if v4 := ip.To4(); v4 != nil {
		return fmt.Sprintf("%d.%d.%d", v4[0], v4[1], v4[2])
	}
	masked := ip.Mask(net.CIDRMask(48, 128))
	return masked.String() + "/48"
}

func signalViews(profiles []*profile.Profile) []*match.Signals {
	views := make([]*match.Signals, 0, len(profiles))
	for _, p := range profiles {
		views = append(views, p.Signals())
	}
	return views
}

func ref(value string) *string { return &value }

func optional(value string) *string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
