package testutil

import (
	"bufio"
	"net"
	"strings"
	"testing"
	"time"
)

// LineClient упрощает написание integration тестов для arena сервера.
// Автоматически управляет framing команд, построчным чтением ответов
// и deadline для каждой операции, чтобы пропавший кадр завалил тест,
// а не повесил его.
type LineClient struct {
	t       testing.TB
	conn    net.Conn
	scanner *bufio.Scanner
	timeout time.Duration
}

// Dial подключает LineClient к серверу по указанному адресу.
// Использует t.Cleanup() для автоматического закрытия соединения.
func Dial(t testing.TB, addr string) *LineClient {
	t.Helper()

	conn, err := net.DialTimeout("tcp", addr, 5*time.Second)
	if err != nil {
		t.Fatalf("dial %s: %v", addr, err)
	}

	// SO_LINGER=0: немедленный RST вместо TIME_WAIT, предотвращает исчерпание эфемерных портов в тестах
	if tcpConn, ok := conn.(*net.TCPConn); ok {
		_ = tcpConn.SetLinger(0)
	}

	return Attach(t, conn)
}

// Attach оборачивает существующее соединение (например конец net.Pipe).
// Использует t.Cleanup() для автоматического закрытия соединения.
func Attach(t testing.TB, conn net.Conn) *LineClient {
	t.Helper()

	c := &LineClient{
		t:       t,
		conn:    conn,
		scanner: bufio.NewScanner(conn),
		timeout: 5 * time.Second,
	}

	t.Cleanup(func() {
		_ = c.Close()
	})

	return c
}

// Send отправляет одну команду, соединяя поля через ';'.
func (c *LineClient) Send(fields ...string) {
	c.t.Helper()

	line := strings.Join(fields, ";") + "\n"
	if err := c.conn.SetWriteDeadline(time.Now().Add(c.timeout)); err != nil {
		c.t.Fatalf("set write deadline: %v", err)
	}
	if _, err := c.conn.Write([]byte(line)); err != nil {
		c.t.Fatalf("write %q: %v", line, err)
	}
}

// SendRaw отправляет байты как есть, без framing.
// Используется для проверки malformed input.
func (c *LineClient) SendRaw(data string) {
	c.t.Helper()

	if err := c.conn.SetWriteDeadline(time.Now().Add(c.timeout)); err != nil {
		c.t.Fatalf("set write deadline: %v", err)
	}
	if _, err := c.conn.Write([]byte(data)); err != nil {
		c.t.Fatalf("write %q: %v", data, err)
	}
}

// ReadLine читает следующий кадр от сервера.
func (c *LineClient) ReadLine() string {
	c.t.Helper()

	if err := c.conn.SetReadDeadline(time.Now().Add(c.timeout)); err != nil {
		c.t.Fatalf("set read deadline: %v", err)
	}
	if !c.scanner.Scan() {
		c.t.Fatalf("reading frame: %v", c.scanner.Err())
	}
	return c.scanner.Text()
}

// Expect читает следующий кадр и проверяет что он равен want.
func (c *LineClient) Expect(want string) {
	c.t.Helper()

	if got := c.ReadLine(); got != want {
		c.t.Fatalf("read frame %q, want %q", got, want)
	}
}

// ExpectPrefix читает следующий кадр и проверяет его префикс.
// Возвращает полный кадр.
func (c *LineClient) ExpectPrefix(prefix string) string {
	c.t.Helper()

	got := c.ReadLine()
	if !strings.HasPrefix(got, prefix) {
		c.t.Fatalf("read frame %q, want prefix %q", got, prefix)
	}
	return got
}

// Close закрывает соединение с сервером.
func (c *LineClient) Close() error {
	return c.conn.Close()
}
