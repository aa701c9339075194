package server

import (
	"errors"
	"runtime"
	"sync"
	"time"

	"github.com/mistermingming/ProcurementManagement/engine"
	"github.com/mistermingming/ProcurementManagement/util/log"
)

type Task interface {
	Do()
	Wait() error
	Reset()
}

func (s *Server) startWorkers(workNum, queueLen int) {
	if workNum <= 0 {
		workNum = int(DefaultMaxWorkNum)
	}
	if queueLen <= 0 {
		queueLen = int(DefaultMaxTaskQueueLen)
	}
	s.taskQueues = make([]chan Task, workNum)
	for i := range s.taskQueues {
		s.taskQueues[i] = make(chan Task, queueLen)
		s.wg.Add(1)
		go s.work(i, s.taskQueues[i])
	}
	s.wg.Add(1)
	go s.workMonitor()
}

func (s *Server) Submit(t Task) error {
	index := time.Now().UnixNano() % int64(len(s.taskQueues))
	select {
	case <-s.ctx.Done():
		return errors.New("server closed")
	case s.taskQueues[index] <- t:
		return nil
	}
}

func (s *Server) workMonitor() {
	defer s.wg.Done()
	for {
		select {
		case <-s.ctx.Done():
			return
		case index := <-s.workRecover:
			if index < 0 {
				return
			}
			s.wg.Add(1)
			go s.work(index, s.taskQueues[index])
		}
	}
}

func (s *Server) work(index int, queue chan Task) {
	defer func() {
		s.wg.Done()
		if r := recover(); r != nil {
			trace := make([]byte, 10000)
			n := runtime.Stack(trace, false)
			select {
			case <-s.ctx.Done():
				return
			case s.workRecover <- index:
			}
			log.Error("panic:%v", r)
			log.Error("Stack: %s", string(trace[:n]))
		}
	}()
	for {
		select {
		case <-s.ctx.Done():
			return
		case t := <-queue:
			// chan closed
			if t == nil {
				return
			}
			t.Do()
		}
	}
}

// ListTask loads one table's rows on the worker pool.
type ListTask struct {
	srv   *Server
	table string
	done  chan error
	rows  []engine.Row
}

func (t *ListTask) init(srv *Server, table string) *ListTask {
	if t == nil {
		return t
	}
	t.srv = srv
	t.table = table
	return t
}

func (t *ListTask) Do() {
	rows, err := t.srv.store.List(t.srv.ctx, t.table)
	if err != nil {
		t.done <- err
		return
	}
	t.rows = rows
	t.done <- nil
}

func (t *ListTask) Wait() error {
	select {
	case <-t.srv.ctx.Done():
		return errors.New("server already closed")
	case err := <-t.done:
		return err
	}
}

func (t *ListTask) Reset() {
	if t == nil {
		return
	}
	*t = ListTask{done: make(chan error, 1)}
}

var listTaskPool *sync.Pool = &sync.Pool{
	New: func() interface{} {
		return &ListTask{done: make(chan error, 1)}
	},
}

func GetListTask() *ListTask {
	return listTaskPool.Get().(*ListTask)
}

func PutListTask(task *ListTask) {
	if task == nil {
		return
	}
	task.Reset()
	listTaskPool.Put(task)
}
