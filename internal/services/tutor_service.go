package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"math/rand/v2"
	"proacademics-service/internal/models"
	"proacademics-service/internal/repository"
	"strings"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/v2/bson"
)

const (
	chatHistoryWindow     = 10
	defaultPracticeCount  = 5
	tutorSystemPromptTmpl = "You are ProAcademics Tutor, a patient and encouraging tutor for secondary school students%s. Explain concepts step by step, check understanding with short questions, and never just hand over final answers to homework. Keep replies under 250 words."
	practicePromptTmpl    = "Write %d exam-style practice questions for %s%s. Respond with only a JSON array of objects with the keys \"question\", \"options\" (an array, may be empty), \"answer\" and \"explanation\"."
	subjectSuffixFmt      = " studying %s"
)

var tutorFallbackReplies = []string{
	"I'm having trouble reaching the tutor right now. Try breaking the problem into smaller steps and write down what you already know.",
	"The AI tutor is unavailable at the moment. Have a look at the Topic Vault videos for this topic, then ask me again.",
	"I can't answer that right now. Re-read the question, underline the key terms and try a similar worked example from your notes.",
	"The tutor is taking a break. Try explaining the problem out loud as if teaching a friend, it often reveals the next step.",
	"I couldn't generate a reply just now. Past papers for this subject are a great way to practise while you wait.",
}

var studyTips = []string{
	"Study in focused 25 minute blocks with a 5 minute break in between.",
	"Test yourself before re-reading: retrieval beats re-reading every time.",
	"Mix topics in a single session so you practise choosing the right method.",
	"Explain a concept in your own words; gaps in understanding show up quickly.",
	"Review today's lesson tonight and again in a week to make it stick.",
	"Do past paper questions under timed conditions at least once a week.",
	"Keep a list of mistakes and revisit it before every test.",
	"Sleep is part of studying: memories consolidate overnight.",
}

// practiceBank is keyed by lower-cased subject. The "general" entry backs unknown subjects.
var practiceBank = map[string][]models.PracticeQuestion{
	"mathematics": {
		{Question: "Solve 3x + 7 = 22.", Answer: "x = 5", Explanation: "Subtract 7 from both sides then divide by 3."},
		{Question: "Expand (x + 3)(x - 2).", Answer: "x^2 + x - 6", Explanation: "Multiply each term in the first bracket by each term in the second."},
		{Question: "What is the gradient of the line y = 4x - 1?", Options: []string{"-1", "1", "4", "-4"}, Answer: "4", Explanation: "In y = mx + c the gradient is m."},
		{Question: "Factorise x^2 - 9.", Answer: "(x - 3)(x + 3)", Explanation: "Difference of two squares."},
		{Question: "Find 15% of 240.", Answer: "36", Explanation: "0.15 x 240 = 36."},
		{Question: "The angles of a triangle are x, 2x and 3x. Find x.", Answer: "30 degrees", Explanation: "6x = 180."},
	},
	"physics": {
		{Question: "State the unit of force.", Options: []string{"Joule", "Newton", "Watt", "Pascal"}, Answer: "Newton", Explanation: "Force is measured in newtons (N)."},
		{Question: "A car travels 120 m in 6 s. What is its average speed?", Answer: "20 m/s", Explanation: "Speed = distance / time."},
		{Question: "What is the weight of a 5 kg mass on Earth (g = 9.8 N/kg)?", Answer: "49 N", Explanation: "W = mg."},
		{Question: "Define power.", Answer: "The rate of doing work", Explanation: "P = W / t, measured in watts."},
		{Question: "What is the current through a 10 ohm resistor with 5 V across it?", Answer: "0.5 A", Explanation: "I = V / R."},
	},
	"chemistry": {
		{Question: "What is the chemical symbol for sodium?", Options: []string{"S", "So", "Na", "Sd"}, Answer: "Na", Explanation: "From the Latin natrium."},
		{Question: "What is the pH of a neutral solution at 25 C?", Answer: "7", Explanation: "Neutral solutions have equal H+ and OH- concentrations."},
		{Question: "Balance: H2 + O2 -> H2O.", Answer: "2H2 + O2 -> 2H2O", Explanation: "Balance oxygen first, then hydrogen."},
		{Question: "Name the gas produced when a metal reacts with an acid.", Answer: "Hydrogen", Explanation: "Metal + acid -> salt + hydrogen."},
		{Question: "How many electrons can the first shell hold?", Answer: "2", Explanation: "The first shell holds at most two electrons."},
	},
	"biology": {
		{Question: "What organelle is the site of respiration?", Options: []string{"Nucleus", "Mitochondrion", "Ribosome", "Chloroplast"}, Answer: "Mitochondrion", Explanation: "Aerobic respiration happens in the mitochondria."},
		{Question: "Write the word equation for photosynthesis.", Answer: "carbon dioxide + water -> glucose + oxygen", Explanation: "Light energy is absorbed by chlorophyll."},
		{Question: "What carries oxygen in red blood cells?", Answer: "Haemoglobin", Explanation: "Haemoglobin binds oxygen in the lungs."},
		{Question: "Name the process by which water moves across a partially permeable membrane.", Answer: "Osmosis", Explanation: "Water moves from a dilute to a more concentrated solution."},
		{Question: "What is the function of the enzyme amylase?", Answer: "Breaks down starch into sugars", Explanation: "Amylase is produced in the salivary glands and pancreas."},
	},
	"general": {
		{Question: "Summarise the key idea of your last lesson in two sentences.", Answer: "Answers vary", Explanation: "Summarising builds recall."},
		{Question: "List three keywords from this topic and define each one.", Answer: "Answers vary", Explanation: "Precise vocabulary earns marks."},
		{Question: "Write one exam-style question on this topic and answer it.", Answer: "Answers vary", Explanation: "Writing questions shows what examiners look for."},
		{Question: "What is the most common mistake students make on this topic?", Answer: "Answers vary", Explanation: "Knowing pitfalls helps you avoid them."},
		{Question: "Draw a mind map connecting this topic to two others you have studied.", Answer: "Answers vary", Explanation: "Connections make knowledge easier to retrieve."},
	},
}

type TutorService struct {
	sessions repository.Store[models.ChatSession]
	llm      ChatCompleter
	now      Clock
}

// NewTutorService builds a tutor. A nil llm makes every answer come from the fallback content.
func NewTutorService(sessions repository.Store[models.ChatSession], llm ChatCompleter) *TutorService {
	return &TutorService{
		sessions: sessions,
		llm:      llm,
		now:      utcNow,
	}
}

func tutorSystemPrompt(subject string) string {
	suffix := ""
	if subject = strings.TrimSpace(subject); subject != "" {
		suffix = fmt.Sprintf(subjectSuffixFmt, subject)
	}
	return fmt.Sprintf(tutorSystemPromptTmpl, suffix)
}

func checkSessionID(id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return ErrInvalidID
	}
	return nil
}

// Chat answers a student's message within a session, creating the session when sessionId is empty.
func (s *TutorService) Chat(ctx context.Context, studentID string, req *models.ChatRequest) (*models.ChatReply, error) {
	if err := validate(req); err != nil {
		return nil, err
	}

	now := s.now()
	var session *models.ChatSession
	if req.SessionID != "" {
		existing, err := s.GetSession(ctx, studentID, req.SessionID)
		if err != nil {
			return nil, err
		}
		session = existing
	} else {
		session = &models.ChatSession{
			ID:        uuid.NewString(),
			StudentID: studentID,
			Subject:   strings.TrimSpace(req.Subject),
			CreatedAt: now,
			UpdatedAt: now,
		}
	}
	if req.Subject != "" {
		session.Subject = strings.TrimSpace(req.Subject)
	}

	history := session.Messages
	if len(history) > chatHistoryWindow {
		history = history[len(history)-chatHistoryWindow:]
	}
	userMsg := models.ChatMessage{Role: models.ChatRoleUser, Content: strings.TrimSpace(req.Message), CreatedAt: now}

	prompt := make([]models.ChatMessage, 0, len(history)+2)
	prompt = append(prompt, models.ChatMessage{Role: models.ChatRoleSystem, Content: tutorSystemPrompt(session.Subject)})
	prompt = append(prompt, history...)
	prompt = append(prompt, userMsg)

	reply, fallback := s.complete(ctx, prompt)
	if fallback {
		reply = tutorFallbackReplies[rand.IntN(len(tutorFallbackReplies))]
	}

	session.Messages = append(session.Messages, userMsg, models.ChatMessage{
		Role:      models.ChatRoleAssistant,
		Content:   reply,
		CreatedAt: s.now(),
	})

	if req.SessionID == "" {
		if err := s.sessions.Insert(ctx, session); err != nil {
			return nil, err
		}
	} else if _, err := s.sessions.Update(ctx, session.ID, bson.M{
		"messages": session.Messages,
		"subject":  session.Subject,
	}); err != nil {
		return nil, err
	}

	return &models.ChatReply{SessionID: session.ID, Reply: reply, Fallback: fallback}, nil
}

// complete reports fallback=true when the model is unavailable or fails.
func (s *TutorService) complete(ctx context.Context, messages []models.ChatMessage) (string, bool) {
	if s.llm == nil {
		return "", true
	}
	reply, err := s.llm.Complete(ctx, messages)
	if err != nil {
		log.Printf("Failed to get tutor reply: %v", err)
		return "", true
	}
	if reply == "" {
		return "", true
	}
	return reply, false
}

func (s *TutorService) ListSessions(ctx context.Context, studentID string) ([]models.ChatSession, error) {
	return s.sessions.Find(ctx, repository.NewQuery().
		Where("studentId", studentID).
		SortBy("-updatedAt"))
}

// GetSession hides sessions belonging to other students behind ErrNotFound.
func (s *TutorService) GetSession(ctx context.Context, studentID, id string) (*models.ChatSession, error) {
	if err := checkSessionID(id); err != nil {
		return nil, err
	}
	session, err := s.sessions.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if session.StudentID != studentID {
		return nil, ErrNotFound
	}
	return session, nil
}

func (s *TutorService) DeleteSession(ctx context.Context, studentID, id string) error {
	if _, err := s.GetSession(ctx, studentID, id); err != nil {
		return err
	}
	return s.sessions.Delete(ctx, id)
}

func (s *TutorService) PracticeQuestions(ctx context.Context, req *models.PracticeRequest) (*models.PracticeSet, error) {
	if err := validate(req); err != nil {
		return nil, err
	}
	count := req.Count
	if count == 0 {
		count = defaultPracticeCount
	}

	set := &models.PracticeSet{Subject: req.Subject, Topic: req.Topic}

	topic := ""
	if req.Topic != "" {
		topic = " on the topic " + req.Topic
	}
	raw, fallback := s.complete(ctx, []models.ChatMessage{
		{Role: models.ChatRoleSystem, Content: tutorSystemPrompt(req.Subject)},
		{Role: models.ChatRoleUser, Content: fmt.Sprintf(practicePromptTmpl, count, req.Subject, topic)},
	})
	if !fallback {
		questions, err := parsePracticeQuestions(raw)
		if err != nil {
			log.Printf("Failed to parse practice questions: %v", err)
		} else {
			if len(questions) > count {
				questions = questions[:count]
			}
			set.Questions = questions
			return set, nil
		}
	}

	set.Questions = s.fallbackQuestions(req.Subject, count)
	set.Fallback = true
	return set, nil
}

// parsePracticeQuestions accepts a JSON array, optionally wrapped in prose or a code fence.
func parsePracticeQuestions(raw string) ([]models.PracticeQuestion, error) {
	start := strings.Index(raw, "[")
	end := strings.LastIndex(raw, "]")
	if start < 0 || end <= start {
		return nil, fmt.Errorf("no JSON array in model output")
	}

	var questions []models.PracticeQuestion
	if err := json.Unmarshal([]byte(raw[start:end+1]), &questions); err != nil {
		return nil, err
	}

	valid := questions[:0]
	for _, q := range questions {
		if strings.TrimSpace(q.Question) != "" {
			valid = append(valid, q)
		}
	}
	if len(valid) == 0 {
		return nil, fmt.Errorf("model returned no usable questions")
	}
	return valid, nil
}

func (s *TutorService) fallbackQuestions(subject string, count int) []models.PracticeQuestion {
	bank, ok := practiceBank[strings.ToLower(strings.TrimSpace(subject))]
	if !ok {
		bank = practiceBank["general"]
	}

	picked := make([]models.PracticeQuestion, len(bank))
	copy(picked, bank)
	rand.Shuffle(len(picked), func(i, j int) {
		picked[i], picked[j] = picked[j], picked[i]
	})
	if count < len(picked) {
		picked = picked[:count]
	}
	return picked
}

func (s *TutorService) StudyTip() string {
	return studyTips[rand.IntN(len(studyTips))]
}
