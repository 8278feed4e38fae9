package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"

	"github.com/fatih/color"
	"github.com/iguagile/iguagile-tictactoe/data"
	"github.com/iguagile/iguagile-tictactoe/game"
	"github.com/pkg/errors"
)

var (
	cyan   = color.New(color.FgCyan).SprintFunc()
	yellow = color.New(color.FgYellow).SprintFunc()
	red    = color.New(color.FgRed).SprintFunc()
	blue   = color.New(color.FgBlue).SprintFunc()
)

var errInvalidCommand = errors.New("invalid command")

// ui renders server messages and turns typed lines into requests.
// handle runs on the receive goroutine, parse on the input goroutine.
type ui struct {
	mu     sync.Mutex
	out    io.Writer
	name   string
	inGame bool
	gameID byte
	symbol game.Symbol
}

func newUI(out io.Writer, name string) *ui {
	return &ui{out: out, name: name}
}

func (u *ui) printf(format string, args ...interface{}) {
	fmt.Fprintf(u.out, format, args...)
}

func (u *ui) welcome() {
	u.printf("\n%s\n", cyan(fmt.Sprintf("=== Welcome to Tic-Tac-Toe, %s! ===", u.name)))
	u.printf("Type %s or %s for commands\n\n", yellow("help"), yellow("?"))
}

func (u *ui) help() {
	u.mu.Lock()
	inGame := u.inGame
	u.mu.Unlock()

	u.printf("\n%s\n", cyan("=== Commands ==="))
	u.printf("  %s or %s              - List all online players\n", cyan("list"), cyan("l"))
	u.printf("  %s or %s - Start a game with someone\n", cyan("play <name>"), cyan("p <name>"))
	if inGame {
		u.printf("  %s                   - Make a move (just type the number!)\n", cyan("1-9"))
	} else {
		u.printf("  %s or %s  - Make a move in your current game\n", cyan("move <1-9>"), cyan("m <1-9>"))
	}
	u.printf("  %s, %s, or %s          - Show this help\n", cyan("help"), cyan("h"), cyan("?"))
	u.printf("  %s                    - Exit\n\n", cyan("^C"))
}

// parse returns the request for one input line, or nil when nothing needs to
// be sent.
func (u *ui) parse(line string) (data.Message, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return nil, nil
	}

	u.mu.Lock()
	inGame, gameID := u.inGame, u.gameID
	u.mu.Unlock()

	move := func(arg string) (data.Message, error) {
		if !inGame {
			return nil, errors.New("you are not in a game")
		}
		position, err := strconv.Atoi(arg)
		if err != nil || position < 1 || position > 9 {
			return nil, errors.New("invalid position, choose 1-9")
		}
		return &data.Move{GameID: gameID, Position: byte(position)}, nil
	}

	switch command := strings.ToLower(fields[0]); {
	case command == "help" || command == "h" || command == "?":
		u.help()
		return nil, nil
	case command == "list" || command == "l":
		return &data.ListReq{}, nil
	case (command == "play" || command == "p") && len(fields) == 2:
		if !data.ValidName(fields[1]) {
			return nil, errors.Errorf("invalid player name %q", fields[1])
		}
		return &data.GameStartReq{Opponent: fields[1]}, nil
	case (command == "move" || command == "m") && len(fields) == 2:
		return move(fields[1])
	case len(fields) == 1 && len(command) == 1 && command[0] >= '0' && command[0] <= '9':
		return move(command)
	}

	return nil, errInvalidCommand
}

func (u *ui) invalid() {
	u.mu.Lock()
	inGame := u.inGame
	u.mu.Unlock()

	u.printf("Invalid command. Try: %s, %s, %s", cyan("help"), cyan("list"), cyan("play <name>"))
	if inGame {
		u.printf(", or just type a number (1-9)\n")
		return
	}
	u.printf("\n")
}

// handle renders one server message.
func (u *ui) handle(m data.Message) error {
	u.mu.Lock()
	defer u.mu.Unlock()

	switch m := m.(type) {
	case *data.ListCount:
		u.printf("Players online (%d):\n", m.Count)
	case *data.ListUser:
		if m.Name == u.name {
			u.printf("  %s (you)\n", m.Name)
		} else {
			u.printf("  %s\n", m.Name)
		}
	case *data.GameStarted:
		u.inGame, u.gameID, u.symbol = true, m.GameID, m.Symbol
		u.printf("\nGame started against %s! You are %s\n", m.Opponent, mark(m.Symbol.Cell()))
		u.render(game.Board{})
		if m.Symbol == game.SymbolX {
			u.printf("You go first!\n")
		} else {
			u.printf("Waiting for opponent's move...\n")
		}
	case *data.GameStartErr:
		u.printf("%s\n", startErrorText(m.Code, m.Opponent))
	case *data.BoardUpdate:
		if m.WhoMoved == u.symbol {
			u.printf("You placed %s at position %d\n", mark(m.WhoMoved.Cell()), m.Position)
		} else {
			u.printf("Opponent placed %s at position %d\n", mark(m.WhoMoved.Cell()), m.Position)
		}
		u.render(m.Board)
		if m.NextTurn == u.symbol {
			u.printf("Your turn\n")
		} else {
			u.printf("Waiting for opponent's move...\n")
		}
	case *data.MoveInvalid:
		u.printf("%s\n", moveErrorText(m.Code))
	case *data.GameOver:
		u.inGame = false
		u.render(m.Board)
		u.printf("%s\n", resultText(m.Result, u.symbol))
	case *data.Error:
		u.printf("Error: %s\n", m.Text)
	}
	return nil
}

func (u *ui) render(board game.Board) {
	for row := 0; row < 3; row++ {
		u.printf(" ")
		for col := 0; col < 3; col++ {
			pos := row*3 + col
			if board[pos] == game.Empty {
				u.printf("%s", cyan(pos+1))
			} else {
				u.printf("%s", mark(board[pos]))
			}
			if col < 2 {
				u.printf(" %s ", yellow("|"))
			}
		}
		u.printf("\n")
		if row < 2 {
			u.printf("%s\n", yellow("---+---+---"))
		}
	}
}

func mark(c game.Cell) string {
	switch c {
	case game.X:
		return red("X")
	case game.O:
		return blue("O")
	}
	return " "
}

func startErrorText(code data.StartError, name string) string {
	switch code {
	case data.StartNoSuchPlayer:
		return "Player does not exist: " + name
	case data.StartOpponentBusy:
		return "Player already in a game: " + name
	case data.StartSelfBusy:
		return "You are already in a game: " + name
	case data.StartSelfChallenge:
		return "Cannot play against yourself: " + name
	}
	return "Could not start game with " + name
}

func moveErrorText(code data.MoveError) string {
	switch code {
	case data.MoveNotYourTurn:
		return "It's not your turn!"
	case data.MoveOccupied:
		return "Position already occupied."
	case data.MoveBadPosition:
		return "Invalid position. Choose 1-9."
	case data.MoveNotInGame:
		return "You are not in a game."
	}
	return "Invalid move."
}

func resultText(r data.Result, symbol game.Symbol) string {
	won := func(winner game.Symbol) string {
		if winner == symbol {
			return "You won!"
		}
		return "You lost!"
	}

	switch r {
	case data.ResultDraw:
		return "Draw game!"
	case data.ResultXWon, data.ResultOForfeit:
		return won(game.SymbolX)
	case data.ResultOWon, data.ResultXForfeit:
		return won(game.SymbolO)
	case data.ResultXDisconnected, data.ResultODisconnected:
		return "Opponent disconnected during game."
	}
	return "Game over."
}
